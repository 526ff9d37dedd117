package model

import "time"

// Trade is one directional signal of a backtest graded against later price
type Trade struct {
	Time       time.Time   `json:"time"`
	Session    SessionName `json:"session"`
	Signal     SignalType  `json:"signal"`
	Direction  Direction   `json:"direction"`
	Confidence float64     `json:"confidence"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  float64     `json:"exit_price"`
	Pips       float64     `json:"pips"`
	WasCorrect bool        `json:"was_correct"`
}

// GroupPerformance aggregates the trades of one session or signal type
type GroupPerformance struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"` // 0-1
	AveragePips float64 `json:"average_pips"`
}

// BacktestResults stores backtesting results
type BacktestResults struct {
	Symbol         string    `json:"symbol"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Steps          int       `json:"steps"`
	TotalTrades    int       `json:"total_trades"`
	WinningTrades  int       `json:"winning_trades"`
	LosingTrades   int       `json:"losing_trades"`
	WinPercentage  float64   `json:"win_percentage"`
	AverageGain    float64   `json:"average_gain"` // pips
	AverageLoss    float64   `json:"average_loss"` // pips
	MaxConsecutive struct {
		Wins  int `json:"wins"`
		Loses int `json:"loses"`
	} `json:"max_consecutive"`
	ProfitFactor       float64                          `json:"profit_factor"`
	MaxDrawdown        float64                          `json:"max_drawdown"` // pips
	SharpeRatio        float64                          `json:"sharpe_ratio"`
	SessionPerformance map[SessionName]GroupPerformance `json:"session_performance"`
	SignalPerformance  map[SignalType]GroupPerformance  `json:"signal_performance"`
	Trades             []Trade                          `json:"trades,omitempty"`
}
