package model

// Status is the moderation state shared by clubs and tournaments.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	// StatusFinished applies to tournaments only.
	StatusFinished Status = "FINISHED"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFinished:
		return true
	}
	return false
}

// ClubStatuses lists the statuses a club can be in, in moderation order.
var ClubStatuses = []Status{StatusPending, StatusApproved, StatusRejected}

// TournamentStatuses lists the statuses a tournament can be in.
var TournamentStatuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusFinished}

func statusOptions(ss []Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
