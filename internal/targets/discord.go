// Package targets implements distribution sinks for approved items.
package targets

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"sentinela/internal/news"
)

const embedColor = 0xC0392B

// DiscordSink posts approved items as embeds into a single channel.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordSink(token, channelID string) (*DiscordSink, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return &DiscordSink{session: session, channelID: channelID}, nil
}

func (d *DiscordSink) Name() string { return "discord" }

func (d *DiscordSink) Send(ctx context.Context, item *news.Item) error {
	embed := &discordgo.MessageEmbed{
		Title: item.Title,
		URL:   item.Link,
		Color: embedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: item.SourceName,
		},
	}

	if evaluation := item.Evaluation; evaluation != nil {
		embed.Description = evaluation.Summary
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Category", Value: string(evaluation.Category), Inline: true},
			{Name: "Score", Value: fmt.Sprintf("%.1f", evaluation.RawScore), Inline: true},
		}
	}
	if !item.PublishedAt.IsZero() {
		embed.Timestamp = item.PublishedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	_, err := d.session.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send discord embed: %w", err)
	}
	return nil
}

func (d *DiscordSink) Close() error {
	return d.session.Close()
}
