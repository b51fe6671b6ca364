package main

import (
	"context"
	"sync"
	"time"

	"hamsterhub/internal/services"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type voiceAction int

const (
	voiceNone voiceAction = iota
	voiceJoin
	voiceLeave
)

type voiceFilter struct {
	guilds        map[string]bool
	ignored       map[string]bool
	countDeafened bool
}

func newVoiceFilter(cfg botConfig) voiceFilter {
	f := voiceFilter{guilds: map[string]bool{}, ignored: map[string]bool{}, countDeafened: cfg.CountDeafened}
	for _, id := range cfg.GuildIDs {
		f.guilds[id] = true
	}
	for _, id := range cfg.IgnoredChannelIDs {
		f.ignored[id] = true
	}
	return f
}

// counts reports whether time spent in this state earns voice minutes.
func (f voiceFilter) counts(state *discordgo.VoiceState) bool {
	if state == nil || state.ChannelID == "" || f.ignored[state.ChannelID] {
		return false
	}
	if !f.countDeafened && (state.SelfDeaf || state.Deaf) {
		return false
	}
	return true
}

func isBot(state *discordgo.VoiceState) bool {
	return state.Member != nil && state.Member.User != nil && state.Member.User.Bot
}

// classify turns a gateway voice update into a join, a leave or nothing.
func (f voiceFilter) classify(after *discordgo.VoiceState, before *discordgo.VoiceState) voiceAction {
	if after == nil || isBot(after) {
		return voiceNone
	}
	if len(f.guilds) > 0 && !f.guilds[after.GuildID] {
		return voiceNone
	}

	if !f.counts(after) {
		if before != nil && !f.counts(before) {
			return voiceNone
		}
		return voiceLeave
	}

	if before != nil && f.counts(before) && before.ChannelID == after.ChannelID {
		return voiceNone
	}
	return voiceJoin
}

type voiceListener struct {
	serviceVoice *services.ServiceVoice
	filter       voiceFilter
	inflight     sync.WaitGroup
}

func newVoiceListener(serviceVoice *services.ServiceVoice, filter voiceFilter) *voiceListener {
	return &voiceListener{serviceVoice: serviceVoice, filter: filter}
}

func (l *voiceListener) apply(action voiceAction, state *discordgo.VoiceState) {
	if action == voiceNone {
		return
	}

	l.inflight.Add(1)
	defer l.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch action {
	case voiceJoin:
		_, err = l.serviceVoice.Join(ctx, state.UserID, state.GuildID, state.ChannelID)
	case voiceLeave:
		_, err = l.serviceVoice.Leave(ctx, state.UserID)
	}
	if err != nil {
		zap.S().Errorw("apply voice state", "user", state.UserID, "channel", state.ChannelID, "action", action, "err", err)
	}
}

func (l *voiceListener) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	l.apply(l.filter.classify(v.VoiceState, v.BeforeUpdate), v.VoiceState)
}

// onGuildCreate opens sessions for members already in a channel when the bot connects.
func (l *voiceListener) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	for _, state := range g.VoiceStates {
		if state.GuildID == "" {
			state.GuildID = g.ID
		}
		l.apply(l.filter.classify(state, nil), state)
	}
}

func (l *voiceListener) wait() {
	l.inflight.Wait()
}
