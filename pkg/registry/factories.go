package registry

import (
	"errors"

	"github.com/txn2/mcp-prospect-research/pkg/gateway"
	"github.com/txn2/mcp-prospect-research/pkg/research"
	"github.com/txn2/mcp-prospect-research/pkg/session"
	businesseskit "github.com/txn2/mcp-prospect-research/pkg/toolkits/businesses"
	prospectskit "github.com/txn2/mcp-prospect-research/pkg/toolkits/prospects"
	researchkit "github.com/txn2/mcp-prospect-research/pkg/toolkits/research"
	sessiondatakit "github.com/txn2/mcp-prospect-research/pkg/toolkits/sessiondata"
)

// Toolkit kinds.
const (
	KindResearch    = "research"
	KindBusinesses  = "businesses"
	KindProspects   = "prospects"
	KindSessionData = "sessiondata"
)

// Deps are the shared collaborators toolkits are built from.
type Deps struct {
	Manager *research.Manager
	Gateway *gateway.Client
	Store   session.Store
}

// RegisterBuiltinFactories registers all built-in toolkit factories.
func RegisterBuiltinFactories(r *Registry) {
	r.RegisterFactory(KindResearch, ResearchFactory)
	r.RegisterFactory(KindBusinesses, BusinessesFactory)
	r.RegisterFactory(KindProspects, ProspectsFactory)
	r.RegisterFactory(KindSessionData, SessionDataFactory)
}

// ResearchFactory creates the research session toolkit.
func ResearchFactory(name string, deps Deps) (Toolkit, error) {
	if deps.Manager == nil {
		return nil, errors.New("research toolkit requires a session manager")
	}
	var ac researchkit.Autocompleter
	if deps.Gateway != nil {
		ac = deps.Gateway
	}
	return researchkit.New(name, deps.Manager, ac), nil
}

// BusinessesFactory creates the pass-through business toolkit.
func BusinessesFactory(name string, deps Deps) (Toolkit, error) {
	if deps.Gateway == nil || deps.Store == nil {
		return nil, errors.New("businesses toolkit requires a gateway and a session data store")
	}
	return businesseskit.New(name, deps.Gateway, deps.Store), nil
}

// ProspectsFactory creates the pass-through prospect toolkit.
func ProspectsFactory(name string, deps Deps) (Toolkit, error) {
	if deps.Gateway == nil || deps.Store == nil {
		return nil, errors.New("prospects toolkit requires a gateway and a session data store")
	}
	return prospectskit.New(name, deps.Gateway, deps.Store), nil
}

// SessionDataFactory creates the session data toolkit.
func SessionDataFactory(name string, deps Deps) (Toolkit, error) {
	if deps.Store == nil {
		return nil, errors.New("sessiondata toolkit requires a session data store")
	}
	return sessiondatakit.New(name, deps.Store), nil
}
