package perf

import (
	"time"

	"github.com/rs/zerolog"
)

// RunPerf times the phases of one command run.
type RunPerf struct {
	Command string
	Start   time.Time
	End     time.Time
	Blocks  []PerfBlock
}

func MakeNewRunPerf(command string) *RunPerf {
	return &RunPerf{
		Start:   time.Now(),
		Command: command,
	}
}

func (rp *RunPerf) EndRun() {
	for rp.EndBlock() {
	}
	rp.End = time.Now()
}

func (rp *RunPerf) Checkpoint(category, description string) {
	now := time.Now()
	checkpoint := PerfBlock{
		Start:       now,
		End:         now,
		Category:    category,
		Description: description,
	}
	rp.Blocks = append(rp.Blocks, checkpoint)
}

func (rp *RunPerf) StartBlock(category, description string) {
	now := time.Now()
	checkpoint := PerfBlock{
		Start:       now,
		End:         time.Time{},
		Category:    category,
		Description: description,
	}
	rp.Blocks = append(rp.Blocks, checkpoint)
}

// Ends the innermost open block. Returns false if no block was open.
func (rp *RunPerf) EndBlock() bool {
	for i := len(rp.Blocks) - 1; i >= 0; i -= 1 {
		if rp.Blocks[i].End.Equal(time.Time{}) {
			rp.Blocks[i].End = time.Now()
			return true
		}
	}
	return false
}

func (rp *RunPerf) MsFromStart(block *PerfBlock) float64 {
	return float64(block.Start.Sub(rp.Start).Nanoseconds()) / 1000 / 1000
}

// Slowest returns the n longest blocks of the given category, longest first.
func (rp *RunPerf) Slowest(category string, n int) []PerfBlock {
	var result []PerfBlock
	for _, block := range rp.Blocks {
		if block.Category != category {
			continue
		}
		i := len(result)
		for i > 0 && result[i-1].Duration() < block.Duration() {
			i--
		}
		if i >= n {
			continue
		}
		result = append(result, PerfBlock{})
		copy(result[i+1:], result[i:])
		result[i] = block
		if len(result) > n {
			result = result[:n]
		}
	}
	return result
}

// Log writes the run's total time and its slowest templates at debug level.
func (rp *RunPerf) Log(logger *zerolog.Logger) {
	logger.Debug().
		Str("command", rp.Command).
		Float64("ms", float64(rp.End.Sub(rp.Start).Nanoseconds())/1000/1000).
		Int("blocks", len(rp.Blocks)).
		Msg("Run finished")
	for _, block := range rp.Slowest("template", 5) {
		logger.Debug().
			Str("template", block.Description).
			Float64("startMs", rp.MsFromStart(&block)).
			Float64("ms", block.DurationMs()).
			Msg("Slow template")
	}
}

type PerfBlock struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

func (pb *PerfBlock) Duration() time.Duration {
	return pb.End.Sub(pb.Start)
}

func (pb *PerfBlock) DurationMs() float64 {
	return float64(pb.Duration().Nanoseconds()) / 1000 / 1000
}
