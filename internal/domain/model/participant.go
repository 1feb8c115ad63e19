package model

import "strings"

// Participant is the pseud a signup belongs to.
type Participant struct {
	ID             int64
	UserID         int64
	Name           string
	Login          string
	TelegramChatID int64
}

// Byline renders "name (login)", or just the name when both are the same.
func (p *Participant) Byline() string {
	if p == nil {
		return ""
	}
	if p.Login == "" || strings.EqualFold(p.Login, p.Name) {
		return p.Name
	}
	return p.Name + " (" + p.Login + ")"
}

// ParseByline splits "name (login)" into its parts. A bare name yields an
// empty login.
func ParseByline(byline string) (name, login string) {
	byline = strings.TrimSpace(byline)
	open := strings.LastIndex(byline, "(")
	if open <= 0 || !strings.HasSuffix(byline, ")") {
		return byline, ""
	}
	name = strings.TrimSpace(byline[:open])
	login = strings.TrimSpace(byline[open+1 : len(byline)-1])
	if name == "" {
		return byline, ""
	}
	return name, login
}
