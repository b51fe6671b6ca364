package main

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func state(channelID string) *discordgo.VoiceState {
	return &discordgo.VoiceState{UserID: "42", GuildID: "g1", ChannelID: channelID}
}

func TestVoiceFilterClassify(t *testing.T) {
	filter := newVoiceFilter(botConfig{GuildIDs: []string{"g1"}, IgnoredChannelIDs: []string{"afk"}})

	deafened := state("lounge")
	deafened.SelfDeaf = true

	bot := state("lounge")
	bot.Member = &discordgo.Member{User: &discordgo.User{ID: "42", Bot: true}}

	otherGuild := state("lounge")
	otherGuild.GuildID = "g2"

	tests := []struct {
		name   string
		after  *discordgo.VoiceState
		before *discordgo.VoiceState
		want   voiceAction
	}{
		{"first join", state("lounge"), nil, voiceJoin},
		{"disconnect", state(""), state("lounge"), voiceLeave},
		{"disconnect unknown before", state(""), nil, voiceLeave},
		{"move", state("games"), state("lounge"), voiceJoin},
		{"mute toggle", state("lounge"), state("lounge"), voiceNone},
		{"move to afk", state("afk"), state("lounge"), voiceLeave},
		{"afk to afk", state("afk"), state("afk"), voiceNone},
		{"back from afk", state("lounge"), state("afk"), voiceJoin},
		{"deafen", deafened, state("lounge"), voiceLeave},
		{"undeafen", state("lounge"), deafened, voiceJoin},
		{"bot", bot, nil, voiceNone},
		{"other guild", otherGuild, nil, voiceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.classify(tt.after, tt.before))
		})
	}
}

func TestVoiceFilterCountDeafened(t *testing.T) {
	filter := newVoiceFilter(botConfig{CountDeafened: true})

	deafened := state("lounge")
	deafened.Deaf = true
	assert.True(t, filter.counts(deafened))

	// no guild filter configured
	other := state("lounge")
	other.GuildID = "anywhere"
	assert.Equal(t, voiceJoin, filter.classify(other, nil))
}
