package main

import (
	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	"github.com/spf13/cobra"
)

type cancelArguments struct {
	txArguments
	Kind      string
	Community string
}

var cancelArgs cancelArguments

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel every ongoing proposal of an action identifier (council only)",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseActionKind(cancelArgs.Kind)
		if err != nil {
			return err
		}
		id := types.ProposalActionIdentifier{Kind: kind, Community: types.CommunityID(cancelArgs.Community)}
		if err = id.Validate(); err != nil {
			return err
		}
		return sendTx(&cancelArgs.txArguments, tx.GovTxTypeCancelProposals, &tx.CancelProposalsTx{Identifier: id})
	},
}

type communityArguments struct {
	txArguments
	Geohash   string
	Name      string
	Income    uint64
	Demurrage uint64
	Community string
}

var communityArgs communityArguments

var communityCmd = &cobra.Command{
	Use:   "community",
	Short: "Manage the community registry (council only)",
}

var communityRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a community",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := types.NewCommunityID(communityArgs.Geohash, communityArgs.Name); err != nil {
			return err
		}
		return sendTx(&communityArgs.txArguments, tx.GovTxTypeRegisterCommunity, &tx.RegisterCommunityTx{
			Geohash:       communityArgs.Geohash,
			Name:          communityArgs.Name,
			NominalIncome: communityArgs.Income,
			Demurrage:     communityArgs.Demurrage,
		})
	},
}

var communityRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a community",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cid := types.CommunityID(communityArgs.Community)
		if err := cid.Validate(); err != nil {
			return err
		}
		return sendTx(&communityArgs.txArguments, tx.GovTxTypeRemoveCommunity, &tx.RemoveCommunityTx{Community: cid})
	},
}

type reputationArguments struct {
	txArguments
	Community string
	Cycle     uint32
	Entries   []string
}

var reputationArgs reputationArguments

var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Record ceremony reputations (council only)",
}

var reputationRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the reputations earned in a ceremony of the current cycle",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cid := types.CommunityID(reputationArgs.Community)
		if err := cid.Validate(); err != nil {
			return err
		}
		entries := make([]tx.ReputationEntry, 0, len(reputationArgs.Entries))
		for _, s := range reputationArgs.Entries {
			e, err := parseEntry(s)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return sendTx(&reputationArgs.txArguments, tx.GovTxTypeRecordReputations, &tx.RecordReputationsTx{
			Community: cid,
			Cycle:     types.CeremonyIndex(reputationArgs.Cycle),
			Entries:   entries,
		})
	},
}

func init() {
	txFlags(cancelCmd, &cancelArgs.txArguments)
	cancelCmd.Flags().StringVarP(&cancelArgs.Kind, "kind", "k", "", "action kind")
	cancelCmd.Flags().StringVarP(&cancelArgs.Community, "community", "c", "", "community id of a community scoped action")

	txFlags(communityRegisterCmd, &communityArgs.txArguments)
	communityRegisterCmd.Flags().StringVarP(&communityArgs.Geohash, "geohash", "g", "", "five character geohash")
	communityRegisterCmd.Flags().StringVarP(&communityArgs.Name, "name", "", "", "community name")
	communityRegisterCmd.Flags().Uint64VarP(&communityArgs.Income, "income", "", 0, "initial nominal income")
	communityRegisterCmd.Flags().Uint64VarP(&communityArgs.Demurrage, "demurrage", "", 0, "initial demurrage")
	txFlags(communityRemoveCmd, &communityArgs.txArguments)
	communityRemoveCmd.Flags().StringVarP(&communityArgs.Community, "community", "c", "", "community id")
	communityCmd.AddCommand(communityRegisterCmd, communityRemoveCmd)

	txFlags(reputationRecordCmd, &reputationArgs.txArguments)
	reputationRecordCmd.Flags().StringVarP(&reputationArgs.Community, "community", "c", "", "community id")
	reputationRecordCmd.Flags().Uint32VarP(&reputationArgs.Cycle, "cycle", "", 0, "ceremony index")
	reputationRecordCmd.Flags().StringSliceVarP(&reputationArgs.Entries, "entry", "e", nil, "address:reputation")
	reputationCmd.AddCommand(reputationRecordCmd)
}
