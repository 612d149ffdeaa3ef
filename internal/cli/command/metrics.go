package command

import (
	"github.com/urfave/cli/v2"
)

// MetricsCommand returns the metrics command. Counters cover the current
// process, so the output is most useful inside a shell.
func MetricsCommand() *cli.Command {
	return &cli.Command{
		Name:   "metrics",
		Usage:  "Show request and storage metrics of this process",
		Action: metrics,
	}
}

type metricView struct {
	Name   string  `json:"name"`
	Labels string  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
}

func metrics(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}

	samples, err := env.Metrics.Snapshot()
	if err != nil {
		return err
	}
	views := make([]metricView, 0, len(samples))
	for _, s := range samples {
		views = append(views, metricView{Name: s.Name, Labels: s.Labels, Value: s.Value})
	}
	return env.Print(views)
}
