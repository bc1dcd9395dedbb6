package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ChatMessageRequest represents the chat API request.
type ChatMessageRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Language       string `json:"language,omitempty"`
	Name           string `json:"name,omitempty"`
}

// ChatMessageResponse represents the chat API response.
type ChatMessageResponse struct {
	Response       string `json:"response"`
	Emotion        string `json:"emotion,omitempty"`
	Language       string `json:"language"`
	ConversationID string `json:"conversation_id"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var (
		conversationID string
		language       string
		name           string
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a chat message",
		Long:  "Sends one message to the chatbot and prints the reply.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runChat(cmd, args[0], conversationID, language, name, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation to continue (default: a new one)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Preferred reply language (en or sw)")
	cmd.Flags().StringVar(&name, "name", "", "Name used in greetings")

	return cmd
}

func runChat(cmd *cobra.Command, message, conversationID, language, name string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := ChatMessageRequest{
		Message:        message,
		UserID:         api.UserID(),
		ConversationID: conversationID,
		Language:       language,
		Name:           name,
	}

	var resp ChatMessageResponse
	if err := api.Post("/chat", req, &resp); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(resp.Response)
	fmt.Printf("\n[conversation: %s", resp.ConversationID)
	if resp.Emotion != "" && resp.Emotion != "neutral" {
		fmt.Printf(", emotion: %s", resp.Emotion)
	}
	fmt.Printf(", language: %s]\n", resp.Language)
	return nil
}
