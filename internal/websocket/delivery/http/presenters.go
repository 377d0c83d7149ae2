package http

import (
	"strings"

	ws "logstream-srv/internal/websocket"
)

// --- Configuration DTOs ---

type WSConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
}

type CookieConfig struct {
	Name string
}

// --- Request DTOs ---

type UpgradeReq struct {
	Token string `form:"token"`
}

func (r UpgradeReq) validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return ws.ErrMissingToken
	}
	return nil
}

// --- Response DTOs ---

type statsResp struct {
	ActiveConnections int    `json:"active_connections"`
	TotalUniqueUsers  int    `json:"total_unique_users"`
	Topics            int    `json:"topics"`
	MessagesSent      uint64 `json:"messages_sent"`
	MessagesDropped   uint64 `json:"messages_dropped"`
	MessagesFailed    uint64 `json:"messages_failed"`
	Broker            string `json:"broker"`
	RateWindowUsers   int    `json:"rate_window_users"`
}

func newStatsResp(s ws.HubStats) statsResp {
	return statsResp{
		ActiveConnections: s.ActiveConnections,
		TotalUniqueUsers:  s.TotalUniqueUsers,
		Topics:            s.Topics,
		MessagesSent:      s.MessagesSent,
		MessagesDropped:   s.MessagesDropped,
		MessagesFailed:    s.MessagesFailed,
		Broker:            s.Broker,
		RateWindowUsers:   s.RateWindowUsers,
	}
}
