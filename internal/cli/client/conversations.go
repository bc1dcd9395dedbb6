package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// ConversationSummary represents one conversation in a list response.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	MessageCount   int       `json:"message_count"`
}

// ConversationListResponse represents the conversation list API response.
type ConversationListResponse struct {
	UserID        string                `json:"user_id"`
	Conversations []ConversationSummary `json:"conversations"`
}

// Message represents one chat turn in a conversation.
type Message struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ConversationDetailResponse represents the conversation detail API response.
type ConversationDetailResponse struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
	Messages       []Message `json:"messages"`
}

// ConversationsCmd creates the conversations command group.
func ConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage conversations",
		Long:    "List, create, inspect, and delete conversations.",
	}

	cmd.AddCommand(conversationsListCmd())
	cmd.AddCommand(conversationsNewCmd())
	cmd.AddCommand(conversationsGetCmd())
	cmd.AddCommand(conversationsDeleteCmd())

	return cmd
}

func conversationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp ConversationListResponse
			path := "/chat/conversations?user_id=" + url.QueryEscape(api.UserID())
			if err := api.Get(path, &resp); err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(resp.Conversations) == 0 {
				fmt.Println("No conversations yet.")
				return nil
			}
			for _, conv := range resp.Conversations {
				fmt.Printf("%s  %-50s  %d messages  %s\n",
					conv.ConversationID, conv.Title, conv.MessageCount,
					conv.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func conversationsNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp struct {
				Success        bool   `json:"success"`
				ConversationID string `json:"conversation_id"`
			}
			if err := api.Post("/chat/conversations", map[string]string{"user_id": api.UserID()}, &resp); err != nil {
				return fmt.Errorf("failed to create conversation: %w", err)
			}

			fmt.Println(resp.ConversationID)
			return nil
		},
	}
}

func conversationsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <conversation-id>",
		Short: "Show a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp ConversationDetailResponse
			path := "/chat/conversations/" + url.PathEscape(args[0]) + "?user_id=" + url.QueryEscape(api.UserID())
			if err := api.Get(path, &resp); err != nil {
				return fmt.Errorf("failed to get conversation: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("%s (%s)\n", resp.Title, resp.ConversationID)
			fmt.Println(strings.Repeat("-", 40))
			for _, msg := range resp.Messages {
				fmt.Printf("%s: %s\n", msg.Role, msg.Text)
			}
			return nil
		},
	}
}

func conversationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := "/chat/conversations/" + url.PathEscape(args[0]) + "?user_id=" + url.QueryEscape(api.UserID())
			if err := api.Delete(path, nil); err != nil {
				return fmt.Errorf("failed to delete conversation: %w", err)
			}

			fmt.Println("Conversation deleted.")
			return nil
		},
	}
}
