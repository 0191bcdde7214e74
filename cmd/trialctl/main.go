package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/confidential-trials/cmd/flags"
	"github.com/ruteri/confidential-trials/interfaces"
	"github.com/ruteri/confidential-trials/trials"
	"github.com/ruteri/confidential-trials/wallet"
)

var flagYes = &cli.BoolFlag{
	Name:  "yes",
	Usage: "sign transactions without asking",
}

var flagSearch = &cli.StringFlag{
	Name:  "search",
	Usage: "only list trials whose name or description contains this text",
}

var flagJSON = &cli.BoolFlag{
	Name:  "json",
	Usage: "print results as JSON",
}

var createFlags = []cli.Flag{
	&cli.StringFlag{Name: "name", Required: true, Usage: "patient name"},
	&cli.StringFlag{Name: "age", Required: true, Usage: "patient age, encrypted before submission"},
	&cli.StringFlag{Name: "condition", Required: true, Usage: "condition score, 1-10"},
	&cli.StringFlag{Name: "phase", Value: "0", Usage: "treatment phase, 0-10"},
	&cli.StringFlag{Name: "description", Usage: "free-text description"},
}

func main() {
	app := &cli.App{
		Name:  "trialctl",
		Usage: "Manage enrollments in the confidential trials registry",
		Flags: append(append([]cli.Flag{flagYes, flagJSON}, flags.ChainFlags...), flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list trials in the registry",
				Flags: []cli.Flag{flagSearch},
				Action: func(cCtx *cli.Context) error {
					return withStack(cCtx, func(stack *flags.Stack) error {
						o := stack.Orchestrator
						if err := o.Refresh(cCtx.Context); err != nil {
							return reportErr(cCtx, o, err)
						}
						return printTrials(cCtx, o.Filter(cCtx.String(flagSearch.Name)))
					})
				},
			},
			{
				Name:  "stats",
				Usage: "print registry statistics",
				Action: func(cCtx *cli.Context) error {
					return withStack(cCtx, func(stack *flags.Stack) error {
						o := stack.Orchestrator
						if err := o.Refresh(cCtx.Context); err != nil {
							return reportErr(cCtx, o, err)
						}
						return printStats(cCtx, o.Stats())
					})
				},
			},
			{
				Name:  "create",
				Usage: "enroll a patient with an encrypted age",
				Flags: createFlags,
				Action: func(cCtx *cli.Context) error {
					return withStack(cCtx, func(stack *flags.Stack) error {
						o := stack.Orchestrator
						if err := o.Initialize(cCtx.Context); err != nil {
							return reportErr(cCtx, o, err)
						}

						o.OpenForm()
						o.UpdateForm(trials.FormFields{
							Name:        cCtx.String("name"),
							Age:         cCtx.String("age"),
							Condition:   cCtx.String("condition"),
							Phase:       cCtx.String("phase"),
							Description: cCtx.String("description"),
						})
						id, err := o.SubmitForm(cCtx.Context)
						if err != nil {
							return reportErr(cCtx, o, err)
						}

						reportBanner(cCtx, o)
						fmt.Fprintln(cCtx.App.Writer, id)
						return nil
					})
				},
			},
			{
				Name:      "verify",
				Usage:     "decrypt a trial's age and record the verification on-chain",
				ArgsUsage: "<trial-id>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one trial id", 2)
					}
					id := interfaces.TrialID(cCtx.Args().First())

					return withStack(cCtx, func(stack *flags.Stack) error {
						o := stack.Orchestrator
						if err := o.Initialize(cCtx.Context); err != nil {
							return reportErr(cCtx, o, err)
						}
						age, err := o.Verify(cCtx.Context, id)
						if err != nil {
							return reportErr(cCtx, o, err)
						}

						reportBanner(cCtx, o)
						fmt.Fprintf(cCtx.App.Writer, "%s\tage %d\n", id, age)
						return nil
					})
				},
			},
			{
				Name:  "probe",
				Usage: "check that the registry contract answers",
				Action: func(cCtx *cli.Context) error {
					return withStack(cCtx, func(stack *flags.Stack) error {
						o := stack.Orchestrator
						if err := o.Probe(cCtx.Context); err != nil {
							return reportErr(cCtx, o, err)
						}
						reportBanner(cCtx, o)
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withStack(cCtx *cli.Context, fn func(*flags.Stack) error) error {
	logger := flags.SetupLogger(cCtx)

	var approver wallet.Approver = newPromptApprover(os.Stdin, cCtx.App.ErrWriter)
	if cCtx.Bool(flagYes.Name) {
		approver = wallet.AutoApprove
	}

	stack, err := flags.BuildStack(cCtx, logger, approver, terminalPassphrase(cCtx.App.ErrWriter))
	if err != nil {
		return err
	}
	defer stack.Close()
	return fn(stack)
}

func reportBanner(cCtx *cli.Context, o *trials.Orchestrator) {
	if state := o.Banner(); state.Visible {
		fmt.Fprintf(cCtx.App.ErrWriter, "[%s] %s\n", state.Status, state.Message)
	}
}

func reportErr(cCtx *cli.Context, o *trials.Orchestrator, err error) error {
	reportBanner(cCtx, o)
	return cli.Exit(err.Error(), 1)
}

func printTrials(cCtx *cli.Context, list []interfaces.Trial) error {
	if cCtx.Bool(flagJSON.Name) {
		return writeJSON(cCtx.App.Writer, list)
	}

	tw := tabwriter.NewWriter(cCtx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCONDITION\tPHASE\tCREATOR\tCREATED\tAGE")
	for i := range list {
		t := &list[i]
		age := "encrypted"
		if v, ok := t.Age(); ok {
			age = fmt.Sprintf("%d (verified)", v)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/10\t%d\t%s\t%s\t%s\n",
			t.ID, t.Name, t.ConditionScore, t.TreatmentPhase, t.ShortCreator(), t.Timestamp.Format("2006-01-02"), age)
	}
	return tw.Flush()
}

func printStats(cCtx *cli.Context, stats trials.Stats) error {
	if cCtx.Bool(flagJSON.Name) {
		return writeJSON(cCtx.App.Writer, stats)
	}
	_, err := fmt.Fprintf(cCtx.App.Writer, "Total trials:\t%d\nVerified patients:\t%d\nAvg condition:\t%.1f\nActive trials:\t%d\n",
		stats.TotalTrials, stats.VerifiedPatients, stats.AvgCondition, stats.ActiveTrials)
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
