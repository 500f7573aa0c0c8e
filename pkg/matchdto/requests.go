package matchdto

type JoinRequest struct {
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

type JoinResponse struct {
	Waiting bool   `json:"waiting"`
	Match   *Match `json:"match,omitempty"`
}

type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type DrawResponse struct {
	Result string `json:"result"`
	Match  *Match `json:"match"`
}

type StakeRequest struct {
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
