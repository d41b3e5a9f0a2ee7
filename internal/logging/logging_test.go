package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func capture() (*bytes.Buffer, zerolog.Logger) {
	buf := &bytes.Buffer{}
	return buf, zerolog.New(buf)
}

func TestWithSymbol(t *testing.T) {
	buf, logger := capture()
	sl := WithSymbol(logger, "005930")
	sl.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"symbol":"005930"`) {
		t.Errorf("missing symbol field: %s", buf.String())
	}
}

func TestEventHelpers(t *testing.T) {
	tests := []struct {
		name  string
		emit  func(zerolog.Logger)
		wants []string
	}{
		{
			name: "pattern",
			emit: func(l zerolog.Logger) { LogPattern(l, "005930", 85, 9, 4, 1) },
			wants: []string{
				`"event":"pattern"`, `"uptrend":9`, `"decline":4`, `"support":1`, `"confidence":85`,
			},
		},
		{
			name: "candidate",
			emit: func(l zerolog.Logger) { LogCandidate(l, "005930", "삼성전자", 80, "new_high") },
			wants: []string{
				`"event":"candidate"`, `"score":80`, `"reason":"new_high"`,
			},
		},
		{
			name: "buy signal",
			emit: func(l zerolog.Logger) { LogBuySignal(l, "005930", 51200, 49800, 53300, 0.85, 19) },
			wants: []string{
				`"event":"signal"`, `"entry":51200`, `"stop_loss":49800`, `"take_profit":53300`, `"quantity":19`,
			},
		},
		{
			name: "sell signal",
			emit: func(l zerolog.Logger) { LogSellSignal(l, "005930", "take_profit", 53400, 41800, 4.3) },
			wants: []string{
				`"event":"signal"`, `"reason":"take_profit"`, `"profit":41800`,
			},
		},
		{
			name: "buy settlement",
			emit: func(l zerolog.Logger) { LogSettlement(l, "005930", "BUY", 19, 51200, 0, 0, 9027200) },
			wants: []string{
				`"event":"settlement"`, `"side":"BUY"`, `"balance":9027200`, "Position opened",
			},
		},
		{
			name: "sell settlement",
			emit: func(l zerolog.Logger) { LogSettlement(l, "005930", "SELL", 19, 53400, 41800, 4.3, 10041800) },
			wants: []string{
				`"side":"SELL"`, `"profit_loss":41800`, `"profit_rate":4.3`, "Position closed",
			},
		},
		{
			name: "filter veto",
			emit: func(l zerolog.Logger) { LogFilterVeto(l, "005930", "close_position: weak close") },
			wants: []string{
				`"event":"filter_veto"`, `"reason":"close_position: weak close"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, logger := capture()
			tt.emit(logger)
			out := buf.String()
			if !strings.Contains(out, `"symbol":"005930"`) {
				t.Errorf("missing symbol field: %s", out)
			}
			for _, want := range tt.wants {
				if !strings.Contains(out, want) {
					t.Errorf("missing %s in %s", want, out)
				}
			}
		})
	}
}
