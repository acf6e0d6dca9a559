package model

type Session struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Flash    string `json:"flash,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.UserID != 0
}
