package http

import (
	"strings"
)

type idReq struct {
	ID string `uri:"id"`
}

func (r idReq) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errWrongBody
	}
	return nil
}

type markReadResp struct {
	AlertID string `json:"alert_id"`
	IsRead  bool   `json:"is_read"`
}

type invalidateResp struct {
	ProjectID string `json:"project_id"`
}
