package services

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

var ErrBotDisabled = errors.New("discord bot disabled")

// Bot wraps the Discord REST session used for direct messages and guild lookups.
// A Bot without a token is valid and turns every call into a no-op.
type Bot struct {
	session *discordgo.Session
}

func NewBot(token string) (*Bot, error) {
	if token == "" {
		return &Bot{}, nil
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers

	return &Bot{session}, nil
}

func (bot *Bot) Enabled() bool {
	return bot != nil && bot.session != nil
}

func (bot *Bot) Session() *discordgo.Session {
	return bot.session
}

func (bot *Bot) SendDirectMessage(ctx context.Context, userID string, content string) error {
	if !bot.Enabled() {
		return nil
	}

	channel, err := bot.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	_, err = bot.session.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	return err
}

func (bot *Bot) MemberRoles(ctx context.Context, guildID string, userID string) ([]string, error) {
	if !bot.Enabled() {
		return nil, ErrBotDisabled
	}

	member, err := bot.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	return member.Roles, nil
}
