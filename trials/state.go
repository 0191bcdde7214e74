package trials

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/confidential-trials/banner"
	"github.com/ruteri/confidential-trials/interfaces"
)

// Session describes the connection the orchestrator works against.
type Session struct {
	Connected       bool           `json:"connected"`
	Account         common.Address `json:"account"`
	ContractAddress common.Address `json:"contract_address"`
	FHEInitialized  bool           `json:"fhe_initialized"`
}

// Status is the banner together with the workflow flags.
type Status struct {
	Banner       banner.State `json:"banner"`
	Initializing bool         `json:"initializing"`
	Refreshing   bool         `json:"refreshing"`
	Creating     bool         `json:"creating"`
	Decrypting   bool         `json:"decrypting"`
}

// Session reports the wallet connection and FHE readiness.
func (o *Orchestrator) Session() Session {
	account, connected := o.wallet.Account()
	return Session{
		Connected:       connected,
		Account:         account,
		ContractAddress: o.registry.Address(),
		FHEInitialized:  o.initialized.Load(),
	}
}

// Status returns the banner and which workflows are running.
func (o *Orchestrator) Status() Status {
	return Status{
		Banner:       o.banner.State(),
		Initializing: o.initializing.running(),
		Refreshing:   o.refreshing.running(),
		Creating:     o.creating.running(),
		Decrypting:   o.decrypting.running(),
	}
}

// Banner returns the current banner.
func (o *Orchestrator) Banner() banner.State {
	return o.banner.State()
}

// Trials returns a copy of the loaded list in registry order.
func (o *Orchestrator) Trials() []interfaces.Trial {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]interfaces.Trial, len(o.trials))
	copy(out, o.trials)
	return out
}

// Filter returns the loaded trials whose name or description contains term, ignoring case.
func (o *Orchestrator) Filter(term string) []interfaces.Trial {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return filterTrials(o.trials, term)
}

// Stats summarizes the loaded trials.
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return computeStats(o.trials)
}

// Select marks a loaded trial as selected and returns it.
func (o *Orchestrator) Select(id interfaces.TrialID) (interfaces.Trial, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	trial, ok := findTrial(o.trials, id)
	if ok {
		o.selected = &trial.ID
	}
	return trial, ok
}

// Selected returns the selected trial as of the last reload.
func (o *Orchestrator) Selected() (interfaces.Trial, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.selected == nil {
		return interfaces.Trial{}, false
	}
	return findTrial(o.trials, *o.selected)
}

// ClearSelection deselects the current trial.
func (o *Orchestrator) ClearSelection() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selected = nil
}

// Form returns the creation form.
func (o *Orchestrator) Form() Form {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.form
}

func (o *Orchestrator) OpenForm() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.form.Open = true
}

// CloseForm hides the form and keeps what was typed.
func (o *Orchestrator) CloseForm() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.form.Open = false
}

// UpdateForm replaces the form fields. Non-digits are dropped from the numeric fields.
func (o *Orchestrator) UpdateForm(fields FormFields) Form {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.form.Fields = fields.sanitized()
	return o.form
}

// SubmitForm creates a trial from the current form fields.
func (o *Orchestrator) SubmitForm(ctx context.Context) (interfaces.TrialID, error) {
	return o.CreateTrial(ctx, o.Form().Fields.Input())
}

func (o *Orchestrator) setSubmitting(submitting bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.form.Submitting = submitting
}
