package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// Gateway is the subset of a bot session used by Presence. *discordgo.Session
// implements it.
type Gateway interface {
	Open() error
	Close() error
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
}

// Presence is a treasury.Announcer: it shows the bot as watching the
// treasury and sets its nickname in a guild.
type Presence struct {
	session  Gateway
	guildID  string
	nickname string
	activity string
	status   string
	log      logrus.FieldLogger
}

// NewPresence returns a Presence for the bot token. guildID may be empty, the
// nickname is then left alone.
func NewPresence(token, guildID string, log logrus.FieldLogger) (*Presence, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return NewPresenceWithGateway(s, guildID, log), nil
}

// NewPresenceWithGateway returns a Presence on an existing session.
func NewPresenceWithGateway(g Gateway, guildID string, log logrus.FieldLogger) *Presence {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Presence{
		session:  g,
		guildID:  guildID,
		nickname: "Treasury",
		activity: "Treasury Balances",
		status:   string(discordgo.StatusDoNotDisturb),
		log:      log.WithField("pkg", "discord"),
	}
}

// Announce opens the gateway, sets the presence and the nickname. The gateway
// stays open until Close, as the presence lasts only as long as the session.
func (p *Presence) Announce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.session.Open(); err != nil {
		return fmt.Errorf("discord gateway: %w", err)
	}
	err := p.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: p.status,
		Activities: []*discordgo.Activity{
			{Name: p.activity, Type: discordgo.ActivityTypeWatching},
		},
	})
	if err != nil {
		return fmt.Errorf("discord presence: %w", err)
	}
	if p.guildID == "" {
		return nil
	}
	if err := p.session.GuildMemberNickname(p.guildID, "@me", p.nickname, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord nickname: %w", err)
	}
	p.log.WithFields(logrus.Fields{"guild": p.guildID, "nickname": p.nickname}).Info("presence announced")
	return nil
}

// Close closes the gateway.
func (p *Presence) Close() error { return p.session.Close() }
