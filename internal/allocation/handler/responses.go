package handler

import (
	"time"

	"mintgate/internal/allocation/models"
)

// RecordResponse is the HTTP representation of an allocation record.
type RecordResponse struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	MetadataRef string    `json:"metadata_ref"`
	Channel     string    `json:"channel"`
	Owner       string    `json:"owner"`
	MintedAt    time.Time `json:"minted_at"`
}

func FromRecord(rec models.Record) *RecordResponse {
	return &RecordResponse{
		ID:          uint64(rec.ID),
		Name:        rec.Name,
		MetadataRef: rec.MetadataRef,
		Channel:     rec.Channel.String(),
		Owner:       rec.Owner.String(),
		MintedAt:    rec.MintedAt,
	}
}

// ChannelResponse describes one channel in the status snapshot.
type ChannelResponse struct {
	Quota  int64 `json:"quota"`
	Minted int64 `json:"minted"`
	Open   bool  `json:"open"`
}

// StatusResponse is the HTTP response for GET /v1/status.
type StatusResponse struct {
	Owner              string                     `json:"owner"`
	Quotas             models.Quotas              `json:"quotas"`
	Counters           models.Counters            `json:"counters"`
	SaleActive         bool                       `json:"sale_active"`
	Paused             bool                       `json:"paused"`
	BaseMetadataPrefix string                     `json:"base_metadata_prefix"`
	MaxPerParticipant  int                        `json:"max_per_participant"`
	Channels           map[string]ChannelResponse `json:"channels"`
}

func FromStatus(st models.Status) *StatusResponse {
	channels := make(map[string]ChannelResponse, len(models.Channels))
	for _, c := range models.Channels {
		channels[c.String()] = ChannelResponse{
			Quota:  st.Quotas.For(c),
			Minted: st.Counters.For(c),
			Open:   st.Open[c],
		}
	}
	return &StatusResponse{
		Owner:              st.Owner.String(),
		Quotas:             st.Quotas,
		Counters:           st.Counters,
		SaleActive:         st.SaleActive,
		Paused:             st.Paused,
		BaseMetadataPrefix: st.BaseMetadataPrefix,
		MaxPerParticipant:  st.MaxPerParticipant,
		Channels:           channels,
	}
}

// ParticipantResponse is the HTTP response for GET /v1/participants/{principal}.
type ParticipantResponse struct {
	Principal   string `json:"principal"`
	Minted      int    `json:"minted"`
	Remaining   int    `json:"remaining"`
	Privileged  bool   `json:"privileged"`
	PreApproved bool   `json:"pre_approved"`
}

func FromParticipant(p models.Participant) *ParticipantResponse {
	return &ParticipantResponse{
		Principal:   p.Principal.String(),
		Minted:      p.Minted,
		Remaining:   max(models.MaxPerParticipant-p.Minted, 0),
		Privileged:  p.Privileged,
		PreApproved: p.PreApproved,
	}
}

// URIResponse is the HTTP response for GET /v1/tokens/{id}/uri.
type URIResponse struct {
	ID  uint64 `json:"id"`
	URI string `json:"uri"`
}

// PauseResponse reports the pause flag after Pause or Unpause.
type PauseResponse struct {
	Paused bool `json:"paused"`
}
