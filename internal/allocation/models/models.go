package models

import (
	"time"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// MaxPerParticipant caps allocations attributed to one principal across all
// channels.
const MaxPerParticipant = 5

// Channel is one of the three allocation categories.
type Channel string

const (
	ChannelWhitelist Channel = "whitelist"
	ChannelPublic    Channel = "public"
	ChannelAdmin     Channel = "admin"
)

// Channels lists every channel in display order.
var Channels = []Channel{ChannelWhitelist, ChannelPublic, ChannelAdmin}

func (c Channel) IsValid() bool {
	switch c {
	case ChannelWhitelist, ChannelPublic, ChannelAdmin:
		return true
	}
	return false
}

func (c Channel) String() string {
	return string(c)
}

// ParseChannel validates a channel name from external input.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown channel "+s)
	}
	return c, nil
}

// Open reports whether the channel would accept an eligible caller given
// the current bounds and flags. Role gates are per caller and not part of
// this predicate. It is recomputed on every call, never cached.
func (c Channel) Open(q Quotas, cnt Counters, saleActive, paused bool) bool {
	if paused || cnt.TotalMinted >= q.Total {
		return false
	}
	switch c {
	case ChannelWhitelist:
		return !saleActive && cnt.WhitelistMinted < q.Whitelist
	case ChannelPublic:
		return saleActive && cnt.PublicMinted < q.Public
	case ChannelAdmin:
		return cnt.AdminMinted < q.Admin
	}
	return false
}

// Quotas bounds the counters. Public is derived and never set directly.
type Quotas struct {
	Total     int64 `json:"total"`
	Whitelist int64 `json:"whitelist"`
	Admin     int64 `json:"admin"`
	Public    int64 `json:"public"`
}

// NewQuotas derives Public = total - (whitelist + admin). The arithmetic is
// unguarded: Public may come out negative, which keeps the public channel
// closed.
func NewQuotas(total, whitelist, admin int64) Quotas {
	return Quotas{
		Total:     total,
		Whitelist: whitelist,
		Admin:     admin,
		Public:    total - (whitelist + admin),
	}
}

// ReservedOverflows reports whether whitelist + admin wraps around int64.
// When it does, the Public value NewQuotas derives is meaningless.
func ReservedOverflows(whitelist, admin int64) bool {
	sum := whitelist + admin
	return (whitelist > 0 && admin > 0 && sum < 0) || (whitelist < 0 && admin < 0 && sum >= 0)
}

// Validate rejects negative inputs, reserved sums that overflow and reserved
// channels that exceed the total. Only enforced when the engine runs with
// strict quotas.
func (q Quotas) Validate() error {
	if q.Total < 0 || q.Whitelist < 0 || q.Admin < 0 {
		return ErrInvalidQuotas
	}
	if ReservedOverflows(q.Whitelist, q.Admin) {
		return ErrInvalidQuotas
	}
	if q.Whitelist > q.Total-q.Admin {
		return ErrInvalidQuotas
	}
	return nil
}

// For returns the quota of a channel.
func (q Quotas) For(c Channel) int64 {
	switch c {
	case ChannelWhitelist:
		return q.Whitelist
	case ChannelPublic:
		return q.Public
	case ChannelAdmin:
		return q.Admin
	}
	return 0
}

// Counters are monotonically non-decreasing running totals.
// Invariant: TotalMinted == WhitelistMinted + PublicMinted + AdminMinted.
type Counters struct {
	TotalMinted     int64 `json:"total_minted"`
	WhitelistMinted int64 `json:"whitelist_minted"`
	PublicMinted    int64 `json:"public_minted"`
	AdminMinted     int64 `json:"admin_minted"`
}

// For returns the counter of a channel.
func (c Counters) For(ch Channel) int64 {
	switch ch {
	case ChannelWhitelist:
		return c.WhitelistMinted
	case ChannelPublic:
		return c.PublicMinted
	case ChannelAdmin:
		return c.AdminMinted
	}
	return 0
}

// Increment returns the counters after one allocation in ch.
func (c Counters) Increment(ch Channel) Counters {
	switch ch {
	case ChannelWhitelist:
		c.WhitelistMinted++
	case ChannelPublic:
		c.PublicMinted++
	case ChannelAdmin:
		c.AdminMinted++
	}
	c.TotalMinted++
	return c
}

// MintRequest carries the caller-supplied part of an allocation.
type MintRequest struct {
	ID          id.TokenID
	Name        string
	MetadataRef string
}

// Record is created once per successful allocation and never modified.
type Record struct {
	ID          id.TokenID
	Name        string
	MetadataRef string
	Channel     Channel
	Owner       id.Principal
	MintedAt    time.Time
}

// Status is a consistent snapshot of everything the query surface exposes.
type Status struct {
	Owner              id.Principal
	Quotas             Quotas
	Counters           Counters
	SaleActive         bool
	Paused             bool
	BaseMetadataPrefix string
	MaxPerParticipant  int
	Open               map[Channel]bool
}

// Participant is the per-principal view: allocation count and roles.
type Participant struct {
	Principal   id.Principal
	Minted      int
	Privileged  bool
	PreApproved bool
}
