// Command cartpole trains an async one-step SARSA agent on the cart-pole
// task and plots the evaluation returns.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/aunum/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lode-ml/lode/pkg/v1/agent/async"
	envv1 "github.com/lode-ml/lode/pkg/v1/env"
	"github.com/lode-ml/lode/pkg/v1/env/cartpole"
	"github.com/lode-ml/lode/pkg/v1/net"
	"github.com/lode-ml/lode/pkg/v1/optimize"
	"github.com/lode-ml/lode/pkg/v1/policy"
)

var (
	configPath  = flag.String("config", "", "path to a YAML training config")
	algorithm   = flag.String("algorithm", "sarsa", "sarsa or qlearning")
	maxEpisodes = flag.Int("max-episodes", 2000, "evaluation episode budget")
	solvedMean  = flag.Float64("solved-mean", 195, "mean windowed return that stops training")
	plotPath    = flag.String("plot", "returns.png", "where to write the returns plot")
)

func main() {
	flag.Parse()

	config := async.DefaultTrainingConfig
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		config, err = async.LoadConfig(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}

	algo := async.OneStepSarsa
	if *algorithm == "qlearning" {
		algo = async.OneStepQLearning
	}

	network, err := net.New(net.Config{
		Inputs:  4,
		Hidden:  []int{24, 24},
		Outputs: cartpole.NumActions,
		Seed:    time.Now().UnixNano(),
	})
	if err != nil {
		log.Fatal(err)
	}

	pol := policy.NewEpsilonGreedy(1.0, 0.01, 1e-5)

	learner, err := async.NewLearner(
		config,
		func() envv1.Environment { return cartpole.New(nil) },
		network,
		pol,
		func() async.Updater { return optimize.SGD{} },
		algo,
	)
	if err != nil {
		log.Fatal(err)
	}

	returns := plotter.XYs{}
	start := time.Now()
	learner.Train(func(episodeReturn float64) bool {
		returns = append(returns, plotter.XY{X: float64(len(returns) + 1), Y: episodeReturn})
		window := learner.Window()
		if window.Len() == 100 && window.Mean() >= *solvedMean {
			log.Successf("solved after %d episodes (mean %.2f)", window.Episodes(), window.Mean())
			return true
		}
		if window.Episodes() >= *maxEpisodes {
			log.Infof("episode budget exhausted (mean %.2f)", window.Mean())
			return true
		}
		return false
	})
	log.Infof("trained for %s over %d shared steps", time.Since(start), learner.Shared().Steps())

	if err := savePlot(returns, *plotPath); err != nil {
		log.Fatal(err)
	}
	log.Successf("wrote %s", *plotPath)
}

func savePlot(returns plotter.XYs, path string) error {
	p := plot.New()
	p.Title.Text = "cart-pole evaluation returns"
	p.X.Label.Text = "episode"
	p.Y.Label.Text = "return"
	line, err := plotter.NewLine(returns)
	if err != nil {
		return err
	}
	p.Add(line, plotter.NewGrid())
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
