package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	submitLang  string
	submitKnown string
	submitLevel string
	submitRepo  string
	submitPath  string
)

var submitCmd = &cobra.Command{
	Use:   "submit [assignment-file]",
	Short: "Submit an assignment for scaffolding",
	Long: `Submit an assignment and follow generation progress.

The assignment text is read from the given file, from stdin when no file
is given, or imported from GitHub with --repo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitLang, "lang", "python", "Target programming language")
	submitCmd.Flags().StringVar(&submitKnown, "known", "", "Language the learner already knows")
	submitCmd.Flags().StringVar(&submitLevel, "level", "beginner", "Experience level (beginner, intermediate, advanced)")
	submitCmd.Flags().StringVar(&submitRepo, "repo", "", "Import the assignment from a GitHub repo (owner/repo)")
	submitCmd.Flags().StringVar(&submitPath, "path", "", "File path inside --repo (default README.md)")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	text, err := assignmentText(args)
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]string{
		"text":             text,
		"target_language":  submitLang,
		"known_language":   submitKnown,
		"experience_level": submitLevel,
	})

	resp, err := http.Post(serverURL+"/api/assignments", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("connecting to server: %w\nIs the server running? Start it with: scaffy serve", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var accepted struct {
		Stream string `json:"stream"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	fmt.Printf("Submitted, following stream %s...\n", accepted.Stream)
	return followStream(accepted.Stream)
}

// assignmentText resolves the assignment source: --repo import, a file
// argument, or stdin.
func assignmentText(args []string) (string, error) {
	if submitRepo != "" {
		payload, _ := json.Marshal(map[string]string{"repo": submitRepo, "path": submitPath})
		resp, err := http.Post(serverURL+"/api/assignments/import", "application/json", bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("connecting to server: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return "", fmt.Errorf("import failed (%d): %s", resp.StatusCode, string(body))
		}
		var imported struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&imported); err != nil {
			return "", fmt.Errorf("parsing response: %w", err)
		}
		return imported.Text, nil
	}

	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading assignment: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func followStream(streamID string) error {
	req, _ := http.NewRequest("GET", serverURL+"/api/sessions/"+streamID+"/events", nil)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event struct {
			Type string `json:"type"`
			Data string `json:"data"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "status":
			fmt.Printf("\033[36m[status]\033[0m %s\n", event.Data)
		case "progress":
			var p struct {
				Stage     string `json:"stage"`
				Completed int    `json:"completed"`
				Total     int    `json:"total"`
			}
			if err := json.Unmarshal([]byte(event.Data), &p); err == nil {
				fmt.Printf("\033[36m[%s]\033[0m %d/%d\n", p.Stage, p.Completed, p.Total)
			}
		case "error":
			fmt.Fprintf(os.Stderr, "\033[31m[error]\033[0m %s\n", event.Data)
			return fmt.Errorf("generation failed")
		case "done":
			fmt.Printf("\n\033[32m✓ Scaffold ready:\033[0m %s\n", event.Data)
			return nil
		}
	}

	return scanner.Err()
}
