package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/calehh/democracy-app/types"
)

var (
	KeyCommunity         = "c%s"
	KeyCommunityKnown    = "o%s"
	KeyReputation        = "r%s/%08x/%s"
	KeyVerifiedCount     = "v%s/%08x"
	KeyInactivityTimeout = "t"
	KeyScheduler         = "x"
)

var (
	ErrCommunityNoexists      = errors.New("community noexists")
	ErrCommunityAlreadyExists = errors.New("community already exists")
)

func (s *State) Community(cid types.CommunityID) (*types.Community, error) {
	c := new(types.Community)
	found, err := s.getJSON(fmt.Sprintf(KeyCommunity, cid), c)
	if err != nil || !found {
		return nil, err
	}
	return c, nil
}

func (s *State) HasCommunity(cid types.CommunityID) (bool, error) {
	val, err := s.get(fmt.Sprintf(KeyCommunity, cid))
	return val != nil, err
}

func (s *State) AddCommunity(c *types.Community) error {
	if err := c.ID.Validate(); err != nil {
		return err
	}
	exists, err := s.HasCommunity(c.ID)
	if err != nil {
		return err
	}
	if exists {
		return ErrCommunityAlreadyExists
	}
	s.set(fmt.Sprintf(KeyCommunityKnown, c.ID), []byte{1})
	return s.setJSON(fmt.Sprintf(KeyCommunity, c.ID), c)
}

// RemoveCommunity drops the community record. Reputation and verified counts
// stay so past tallies remain reproducible.
func (s *State) RemoveCommunity(cid types.CommunityID) error {
	exists, err := s.HasCommunity(cid)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCommunityNoexists
	}
	s.remove(fmt.Sprintf(KeyCommunity, cid))
	return nil
}

// Communities returns the registered community ids in ascending order.
func (s *State) Communities() (cids []types.CommunityID, err error) {
	prefix := fmt.Sprintf(KeyCommunity, "")
	err = s.iterate(prefix, func(key string, _ []byte) error {
		cids = append(cids, types.CommunityID(strings.TrimPrefix(key, prefix)))
		return nil
	})
	return
}

// KnownCommunities returns every community ever registered, removed ones
// included. Reputation can only exist for these.
func (s *State) KnownCommunities() (cids []types.CommunityID, err error) {
	prefix := fmt.Sprintf(KeyCommunityKnown, "")
	err = s.iterate(prefix, func(key string, _ []byte) error {
		cids = append(cids, types.CommunityID(strings.TrimPrefix(key, prefix)))
		return nil
	})
	return
}

func (s *State) CommunityRecords() (communities []types.Community, err error) {
	err = s.iterate(fmt.Sprintf(KeyCommunity, ""), func(key string, val []byte) error {
		var c types.Community
		if err := json.Unmarshal(val, &c); err != nil {
			return err
		}
		communities = append(communities, c)
		return nil
	})
	return
}

// Reputation defaults to unverified for accounts that never attended.
func (s *State) Reputation(cid types.CommunityID, cycle types.CeremonyIndex, account types.AccountID) (types.Reputation, error) {
	val, err := s.get(fmt.Sprintf(KeyReputation, cid, cycle, account))
	if err != nil || len(val) == 0 {
		return types.ReputationUnverified, err
	}
	return types.Reputation(val[0]), nil
}

// SetReputation records an attendance outcome and keeps the verified count of
// (cid, cycle) in step with it.
func (s *State) SetReputation(cid types.CommunityID, cycle types.CeremonyIndex, account types.AccountID, rep types.Reputation) error {
	if rep > types.ReputationVerifiedLinked {
		return fmt.Errorf("invalid reputation %v", rep)
	}
	old, err := s.Reputation(cid, cycle, account)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(KeyReputation, cid, cycle, account)
	if rep == types.ReputationUnverified {
		s.remove(key)
	} else {
		s.set(key, []byte{byte(rep)})
	}
	if old.IsVerified() == rep.IsVerified() {
		return nil
	}
	count, err := s.VerifiedCount(cid, cycle)
	if err != nil {
		return err
	}
	if rep.IsVerified() {
		count++
	} else if count > 0 {
		count--
	}
	return s.setRLP(fmt.Sprintf(KeyVerifiedCount, cid, cycle), count)
}

func (s *State) VerifiedCount(cid types.CommunityID, cycle types.CeremonyIndex) (count uint64, err error) {
	_, err = s.getRLP(fmt.Sprintf(KeyVerifiedCount, cid, cycle), &count)
	return
}

func (s *State) updateCommunity(cid types.CommunityID, fn func(c *types.Community)) error {
	c, err := s.Community(cid)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrCommunityNoexists, cid)
	}
	fn(c)
	return s.setJSON(fmt.Sprintf(KeyCommunity, cid), c)
}

func (s *State) SetNominalIncome(cid types.CommunityID, income uint64) error {
	return s.updateCommunity(cid, func(c *types.Community) { c.NominalIncome = income })
}

func (s *State) SetDemurrage(cid types.CommunityID, demurrage uint64) error {
	return s.updateCommunity(cid, func(c *types.Community) { c.Demurrage = demurrage })
}

func (s *State) SetInactivityTimeout(timeout uint32) error {
	return s.setRLP(KeyInactivityTimeout, timeout)
}

func (s *State) InactivityTimeout() (timeout uint32, err error) {
	_, err = s.getRLP(KeyInactivityTimeout, &timeout)
	return
}

func (s *State) SchedulerState() (*types.SchedulerState, error) {
	st := new(types.SchedulerState)
	found, err := s.getRLP(KeyScheduler, st)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("scheduler state: %w", ErrNotFound)
	}
	return st, nil
}

func (s *State) SetSchedulerState(st *types.SchedulerState) error {
	return s.setRLP(KeyScheduler, st)
}

func (s *State) CurrentCeremonyIndex() (types.CeremonyIndex, error) {
	st, err := s.SchedulerState()
	if err != nil {
		return 0, err
	}
	return st.CeremonyIndex, nil
}
