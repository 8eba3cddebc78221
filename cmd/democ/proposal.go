package main

import (
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	"github.com/spf13/cobra"
)

type submitArguments struct {
	txArguments
	Community string
	Value     uint64
}

var submitArgs submitArguments

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a proposal",
	Long:  `Submit a proposal for one of the governed actions.`,
}

var submitIncomeCmd = &cobra.Command{
	Use:   "nominal-income",
	Short: "Propose a new nominal income for a community",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(&types.UpdateNominalIncome{Community: types.CommunityID(submitArgs.Community), Income: submitArgs.Value})
	},
}

var submitDemurrageCmd = &cobra.Command{
	Use:   "demurrage",
	Short: "Propose a new demurrage rate for a community",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(&types.UpdateDemurrage{Community: types.CommunityID(submitArgs.Community), Demurrage: submitArgs.Value})
	},
}

var submitTimeoutCmd = &cobra.Command{
	Use:   "inactivity-timeout",
	Short: "Propose a new network wide inactivity timeout",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(&types.SetInactivityTimeout{Timeout: uint32(submitArgs.Value)})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{submitIncomeCmd, submitDemurrageCmd, submitTimeoutCmd} {
		txFlags(cmd, &submitArgs.txArguments)
		cmd.Flags().Uint64VarP(&submitArgs.Value, "value", "v", 0, "new value")
		submitCmd.AddCommand(cmd)
	}
	submitIncomeCmd.Flags().StringVarP(&submitArgs.Community, "community", "c", "", "community id")
	submitDemurrageCmd.Flags().StringVarP(&submitArgs.Community, "community", "c", "", "community id")

	txFlags(updateCmd, &updateArgs.txArguments)
	updateCmd.Flags().Uint64VarP(&updateArgs.Proposal, "proposal", "p", 0, "proposal id")
}

func submit(action types.ProposalAction) error {
	if err := action.Validate(); err != nil {
		return err
	}
	return sendTx(&submitArgs.txArguments, tx.GovTxTypeSubmitProposal, &tx.SubmitProposalTx{Action: action})
}

type updateArguments struct {
	txArguments
	Proposal uint64
}

var updateArgs updateArguments

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-evaluate the state of a proposal",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&updateArgs.txArguments, tx.GovTxTypeUpdateProposalState, &tx.UpdateProposalStateTx{Proposal: updateArgs.Proposal})
	},
}
