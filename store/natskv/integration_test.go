package natskv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/natsclient"
)

type StoreIntegrationSuite struct {
	suite.Suite
	testClient *natsclient.TestClient
	natsClient *natsclient.Client
	store      *Store
	ctx        context.Context
	cancel     context.CancelFunc
}

func (s *StoreIntegrationSuite) SetupSuite() {
	s.testClient = natsclient.NewTestClient(s.T(),
		natsclient.WithJetStream(),
		natsclient.WithKV())
	s.natsClient = s.testClient.Client
}

func (s *StoreIntegrationSuite) SetupTest() {
	var err error
	s.store, err = New(s.natsClient)
	s.Require().NoError(err)

	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)

	// The bucket survives across tests on the shared server; start each
	// test from an empty rule set so List assertions hold.
	rules, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	for _, r := range rules {
		s.Require().NoError(s.store.Delete(s.ctx, r.ID))
	}
}

func (s *StoreIntegrationSuite) TearDownTest() {
	s.cancel()
}

func (s *StoreIntegrationSuite) newRule(id, name string) automation.Rule {
	return automation.Rule{
		ID:      id,
		Name:    name,
		Trigger: automation.Trigger{Kind: automation.TriggerJobCreated},
		Action:  automation.Action{Kind: automation.ActionCreateTask, TaskTitle: "Call [customer_name]"},
		Enabled: true,
	}
}

func (s *StoreIntegrationSuite) TestPutAndGet() {
	rule := s.newRule("", "Quote follow-up")
	s.Require().NoError(s.store.Put(s.ctx, &rule))
	s.Require().NotEmpty(rule.ID, "Put should assign an ID")

	got, err := s.store.Get(s.ctx, rule.ID)
	s.Require().NoError(err)
	s.Equal(rule, got)
}

func (s *StoreIntegrationSuite) TestPutUpserts() {
	rule := s.newRule("upsert-me", "First version")
	s.Require().NoError(s.store.Put(s.ctx, &rule))

	rule.Name = "Second version"
	s.Require().NoError(s.store.Put(s.ctx, &rule))

	got, err := s.store.Get(s.ctx, "upsert-me")
	s.Require().NoError(err)
	s.Equal("Second version", got.Name)

	rules, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(rules, 1)
}

func (s *StoreIntegrationSuite) TestListEmptyBucket() {
	rules, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(rules)
}

func (s *StoreIntegrationSuite) TestListSortedByID() {
	for _, id := range []string{"c-rule", "a-rule", "b-rule"} {
		rule := s.newRule(id, "Rule "+id)
		s.Require().NoError(s.store.Put(s.ctx, &rule))
	}

	rules, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rules, 3)
	s.Equal("a-rule", rules[0].ID)
	s.Equal("b-rule", rules[1].ID)
	s.Equal("c-rule", rules[2].ID)
}

func (s *StoreIntegrationSuite) TestMissingRule() {
	_, err := s.store.Get(s.ctx, "never-stored")
	s.Require().ErrorIs(err, errors.ErrRuleNotFound)

	err = s.store.Delete(s.ctx, "never-stored")
	s.Require().ErrorIs(err, errors.ErrRuleNotFound)
}

func (s *StoreIntegrationSuite) TestDelete() {
	rule := s.newRule("doomed", "Short lived")
	s.Require().NoError(s.store.Put(s.ctx, &rule))
	s.Require().NoError(s.store.Delete(s.ctx, "doomed"))

	_, err := s.store.Get(s.ctx, "doomed")
	s.Require().ErrorIs(err, errors.ErrRuleNotFound)

	rules, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(rules)
}

// Concurrent writers to the same key must both land through CAS retries
// rather than erroring or losing the key.
func (s *StoreIntegrationSuite) TestConcurrentPutsToSameID() {
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rule := s.newRule("contended", "Writer")
			errs[n] = s.store.Put(s.ctx, &rule)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.store.Get(s.ctx, "contended")
	s.Require().NoError(err)
	s.Equal("Writer", got.Name)
}

func TestIntegration_NATSKVStore(t *testing.T) {
	suite.Run(t, new(StoreIntegrationSuite))
}
