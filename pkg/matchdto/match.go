// Package matchdto holds the JSON shapes exchanged with arena clients.
package matchdto

type Stake struct {
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

type Match struct {
	ID            uint64 `json:"id"`
	White         string `json:"white"`
	Black         string `json:"black"`
	Turn          string `json:"turn"`
	ToMove        string `json:"to_move,omitempty"`
	State         string `json:"state"`
	Winner        string `json:"winner,omitempty"`
	Termination   string `json:"termination,omitempty"`
	DrawOffer     string `json:"draw_offer,omitempty"`
	Stake         Stake  `json:"stake"`
	Moves         int    `json:"moves"`
	LastMove      string `json:"last_move,omitempty"`
	CreatedEpoch  uint64 `json:"created_epoch"`
	LastMoveEpoch uint64 `json:"last_move_epoch"`
	Deadline      uint64 `json:"deadline"`
	// Board is the 64 cell codes, rank 8 first: 0-5 White KQRBNP, 6 empty, 7-12 Black.
	Board []int  `json:"board"`
	FEN   string `json:"fen"`
}

type Settings struct {
	Paused bool   `json:"paused"`
	Stake  *Stake `json:"stake,omitempty"`
	Epoch  uint64 `json:"epoch"`
	Grace  uint64 `json:"grace"`
}

type Score struct {
	Player string `json:"player"`
	Points int64  `json:"points"`
}

type Pairing struct {
	Waiting string `json:"waiting,omitempty"`
}

type MatchList struct {
	Player  string   `json:"player"`
	Matches []uint64 `json:"matches"`
}

type Resettle struct {
	Settled   int `json:"settled"`
	Remaining int `json:"remaining"`
}

type Result struct {
	MatchID     uint64 `json:"match_id"`
	White       string `json:"white"`
	Black       string `json:"black"`
	Outcome     string `json:"outcome"`
	Termination string `json:"termination"`
	Winner      string `json:"winner,omitempty"`
	Stake       Stake  `json:"stake"`
	Moves       int    `json:"moves"`
	RecordedAt  int64  `json:"recorded_at"`
}

type Standings struct {
	Standings []Score `json:"standings"`
}
