package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show the current session, or an archived one by ID",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	url := serverURL + "/api/session"
	if len(args) == 1 {
		url = serverURL + "/api/sessions/" + args[0]
	}

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var sess struct {
		ID      string `json:"id"`
		Request struct {
			TargetLanguage  string `json:"target_language"`
			ExperienceLevel string `json:"experience_level"`
		} `json:"request"`
		Breakdown *struct {
			Overview           string `json:"overview"`
			TotalEstimatedTime string `json:"total_estimated_time"`
			Tasks              []struct {
				Title string `json:"title"`
			} `json:"tasks"`
		} `json:"breakdown"`
		Loading      bool   `json:"loading"`
		Error        string `json:"error"`
		HasSubmitted bool   `json:"has_submitted"`
		CreatedAt    string `json:"created_at"`
		UpdatedAt    string `json:"updated_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	switch {
	case sess.Loading:
		fmt.Println("Status:   🔄 generating")
	case sess.Error != "":
		fmt.Println("Status:   ❌ error")
	case sess.HasSubmitted:
		fmt.Println("Status:   ✅ ready")
	default:
		fmt.Println("Status:   ⏳ no submission yet")
	}

	if sess.ID != "" {
		fmt.Printf("Session:  %s\n", sess.ID)
	}
	if sess.Request.TargetLanguage != "" {
		fmt.Printf("Language: %s (%s)\n", sess.Request.TargetLanguage, sess.Request.ExperienceLevel)
	}
	if sess.Breakdown != nil {
		fmt.Printf("Overview: %s\n", sess.Breakdown.Overview)
		fmt.Printf("Estimate: %s\n", sess.Breakdown.TotalEstimatedTime)
		fmt.Printf("Tasks:\n")
		for i, t := range sess.Breakdown.Tasks {
			fmt.Printf("  %d. %s\n", i+1, t.Title)
		}
	}
	if sess.Error != "" {
		fmt.Printf("Error:    %s\n", sess.Error)
	}
	if sess.CreatedAt != "" {
		fmt.Printf("Created:  %s\n", sess.CreatedAt)
	}

	return nil
}
