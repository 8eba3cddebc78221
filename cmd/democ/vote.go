package main

import (
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	"github.com/spf13/cobra"
)

type voteArguments struct {
	txArguments
	Proposal    uint64
	Vote        string
	Reputations []string
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote on a proposal with community reputations",
	Long: `Vote aye or nay on an ongoing or confirming proposal. Every reputation is
given as community:cycle and counts once if it is verified and fresh.`,
	Args: cobra.ExactArgs(0),
	RunE: voteRun,
}

func init() {
	txFlags(voteCmd, &voteArgs.txArguments)
	voteCmd.Flags().Uint64VarP(&voteArgs.Proposal, "proposal", "p", 0, "proposal id")
	voteCmd.Flags().StringVarP(&voteArgs.Vote, "vote", "v", "aye", "aye or nay")
	voteCmd.Flags().StringSliceVarP(&voteArgs.Reputations, "reputation", "r", nil, "reputation handles, community:cycle")
}

func voteRun(cmd *cobra.Command, args []string) error {
	vote, err := types.ParseVote(voteArgs.Vote)
	if err != nil {
		return err
	}
	handles := make([]types.ReputationHandle, 0, len(voteArgs.Reputations))
	for _, s := range voteArgs.Reputations {
		h, err := parseHandle(s)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}
	return sendTx(&voteArgs.txArguments, tx.GovTxTypeVote, &tx.VoteTx{
		Proposal:    voteArgs.Proposal,
		Vote:        vote,
		Reputations: handles,
	})
}
