package cmd

import (
	"flag"

	"github.com/etnz/treasury/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Complete handles shell completion requests for the named program and
// returns when the process is not a completion request.
//
// Install it with COMP_INSTALL=1 tsy.
func Complete(name string) {
	root := &complete.Command{
		Sub: make(map[string]*complete.Command),
		Flags: map[string]complete.Predictor{
			"state":      predict.Files("*.json"),
			"env":        predict.Files("*"),
			"redis":      predict.Nothing,
			"rpc":        predict.Nothing,
			"commitment": predict.Set{"processed", "confirmed", "finalized"},
			"locale":     predict.Set{"en-US", "en-GB", "fr", "de"},
			"currency":   predict.Set{"USD", "EUR", "GBP"},
			"webhook":    predict.Nothing,
			"message":    predict.Nothing,
			"v":          predict.Nothing,
		},
	}
	for _, c := range Commands {
		sub := &complete.Command{Flags: make(map[string]complete.Predictor)}
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		fs.VisitAll(func(f *flag.Flag) {
			sub.Flags[f.Name] = flagPredictor(c, f)
		})
		if c.Name() == "topic" {
			topics, _ := docs.GetAllTopics()
			sub.Args = predict.Set(append(topics, "*"))
		}
		root.Sub[c.Name()] = sub
	}
	complete.Complete(name, root)
}

func flagPredictor(c subcommands.Command, f *flag.Flag) complete.Predictor {
	switch {
	case c.Name() == "add" && f.Name == "type":
		return predict.Set{"SOL", "USDC"}
	case f.Name == "every":
		return predict.Set{"1m", "5m", "15m", "1h"}
	}
	return predict.Nothing
}
