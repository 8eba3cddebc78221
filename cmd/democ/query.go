package main

import (
	"encoding/json"
	"strconv"

	"github.com/calehh/democracy-app/app"
	"github.com/calehh/democracy-app/types"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url       string
	Community string
	Cycle     uint32
	Account   string
}

var queryArgs queryArguments

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the governance state of a node",
}

// idQuery builds a subcommand querying path with an optional decimal id argument.
func idQuery(use, short, path string, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if len(args) > 0 {
				if _, err := strconv.ParseUint(args[0], 10, 64); err != nil {
					return err
				}
				data = []byte(args[0])
			}
			return queryAndPrint(path, data)
		},
	}
}

func queryAndPrint(path string, data []byte) error {
	res, err := abciQuery(queryArgs.Url, path, data)
	if err != nil {
		return err
	}
	return printJSON(json.RawMessage(res))
}

var queryReputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Show the verified reputation count of a community cycle, or one account's reputation",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := app.ReputationQuery{
			Community: types.CommunityID(queryArgs.Community),
			Cycle:     queryArgs.Cycle,
			Account:   types.AccountID(queryArgs.Account),
		}
		if err := q.Community.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(q)
		if err != nil {
			return err
		}
		return queryAndPrint("/reputations/", data)
	},
}

func init() {
	queryCmd.PersistentFlags().StringVarP(&queryArgs.Url, "url", "u", "http://127.0.0.1:26657", "democracy node rpc url")

	queryCmd.AddCommand(
		idQuery("proposal [id]", "Show a proposal and its tally, or the proposal count", "/proposals/", cobra.MaximumNArgs(1)),
		idQuery("tally <id>", "Show the tally of a proposal", "/tallies/", cobra.ExactArgs(1)),
		idQuery("electorate <id>", "Show the electorate of a proposal and whether it passes", "/electorate/", cobra.ExactArgs(1)),
		idQuery("enactment", "Show the enactment queue", "/enactment/", cobra.NoArgs),
		idQuery("communities", "Show the community registry", "/communities/", cobra.NoArgs),
		idQuery("scheduler", "Show the ceremony scheduler", "/scheduler/", cobra.NoArgs),
		idQuery("params", "Show the governance parameters", "/params/", cobra.NoArgs),
		idQuery("council", "Show the council", "/council/", cobra.NoArgs),
		queryReputationCmd,
	)
	queryReputationCmd.Flags().StringVarP(&queryArgs.Community, "community", "c", "", "community id")
	queryReputationCmd.Flags().Uint32VarP(&queryArgs.Cycle, "cycle", "", 0, "ceremony index")
	queryReputationCmd.Flags().StringVarP(&queryArgs.Account, "address", "a", "", "account address")
}
