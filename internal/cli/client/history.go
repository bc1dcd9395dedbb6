package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// ChatHistoryResponse represents the chat history API response.
type ChatHistoryResponse struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show chat history",
		Long:  "Shows the messages of a conversation, defaulting to the most recent one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := "/chat/history?user_id=" + url.QueryEscape(api.UserID())
			if conversationID != "" {
				path += "&conversation_id=" + url.QueryEscape(conversationID)
			}

			var resp ChatHistoryResponse
			if err := api.Get(path, &resp); err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(resp.Messages) == 0 {
				fmt.Println("No messages yet.")
				return nil
			}
			for _, msg := range resp.Messages {
				fmt.Printf("%s: %s\n", msg.Role, msg.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation to show (default: most recent)")

	return cmd
}

// ClearCmd creates the clear command.
func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all chat history",
		Long:  "Deletes every conversation for the current user.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if err := api.Post("/chat/clear", map[string]string{"user_id": api.UserID()}, nil); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			fmt.Println("Chat history cleared.")
			return nil
		},
	}
}
