// Package discord is the chat transport: it posts task notifications to one
// channel, edits and deletes them, and reads back who reacted.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/gandash/dash/internal/logger"
)

// CheckEmoji is the reaction that marks a task as done.
const CheckEmoji = "✅"

// ErrDisabled is returned by operations that need a bot token when none is
// configured. Sends are skipped silently instead.
var ErrDisabled = errors.New("discord: bot token not configured")

type Client struct {
	session *discordgo.Session
	log     *logger.Logger

	mu        sync.RWMutex
	channelID string
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for REST calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if c.session != nil {
			c.session.Client = hc
		}
	}
}

// New creates a REST-only client. An empty token yields a disabled client
// whose sends are no-ops.
func New(token, channelID string, log *logger.Logger, opts ...Option) (*Client, error) {
	c := &Client{
		log:       log.WithComponent("discord"),
		channelID: channelID,
	}

	if token == "" {
		c.log.Warn("No DISCORD_BOT_TOKEN configured, notifications are disabled")
	} else {
		session, err := discordgo.New("Bot " + token)
		if err != nil {
			return nil, fmt.Errorf("failed to create discord session: %w", err)
		}
		c.session = session
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Enabled() bool {
	return c.session != nil
}

func (c *Client) ChannelID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channelID
}

// SetChannelID retargets every later call to another channel.
func (c *Client) SetChannelID(channelID string) {
	c.mu.Lock()
	c.channelID = channelID
	c.mu.Unlock()
	c.log.Infow("Notification channel changed", "channel_id", channelID)
}

// Send posts plain text, prefixed with a mention when mentionID is set, and
// returns the new message id. It returns "" when the client is disabled.
func (c *Client) Send(ctx context.Context, content, mentionID string) (string, error) {
	if !c.Enabled() {
		c.log.Warn("Bot token not configured, skipping notification")
		return "", nil
	}
	if mentionID != "" {
		content = mention(mentionID) + " " + content
	}

	msg, err := c.session.ChannelMessageSend(c.ChannelID(), content, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	c.log.Debugw("Notification sent", "message_id", msg.ID)
	return msg.ID, nil
}

// SendEmbed posts an embed with an optional mention as the message content.
func (c *Client) SendEmbed(ctx context.Context, embed *discordgo.MessageEmbed, mentionID string) (string, error) {
	if !c.Enabled() {
		c.log.Warn("Bot token not configured, skipping embed notification")
		return "", nil
	}

	data := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	if mentionID != "" {
		data.Content = mention(mentionID)
	}

	msg, err := c.session.ChannelMessageSendComplex(c.ChannelID(), data, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send embed: %w", err)
	}
	c.log.Debugw("Embed notification sent", "message_id", msg.ID)
	return msg.ID, nil
}

// EditEmbed replaces the embeds of an existing message.
func (c *Client) EditEmbed(ctx context.Context, messageID string, embed *discordgo.MessageEmbed) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	edit := discordgo.NewMessageEdit(c.ChannelID(), messageID).SetEmbed(embed)
	if _, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s: %w", messageID, err)
	}
	return nil
}

// Delete removes a message. A message that no longer exists counts as
// deleted.
func (c *Client) Delete(ctx context.Context, messageID string) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	err := c.session.ChannelMessageDelete(c.ChannelID(), messageID, discordgo.WithContext(ctx))
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

func (c *Client) AddReaction(ctx context.Context, messageID, emoji string) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	if err := c.session.MessageReactionAdd(c.ChannelID(), messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add reaction to %s: %w", messageID, err)
	}
	return nil
}

// Reactors lists the users that reacted with emoji. A missing message or a
// reaction nobody has placed yields an empty list.
func (c *Client) Reactors(ctx context.Context, messageID, emoji string) ([]*discordgo.User, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	users, err := c.session.MessageReactions(c.ChannelID(), messageID, emoji, 100, "", "", discordgo.WithContext(ctx))
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list reactions on %s: %w", messageID, err)
	}
	return users, nil
}

// IsNotFound reports whether err is a Discord 404.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) &&
		restErr.Response != nil &&
		restErr.Response.StatusCode == http.StatusNotFound
}

func mention(userID string) string {
	return "<@" + userID + ">"
}
