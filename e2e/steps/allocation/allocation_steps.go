package allocation

import (
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(principal, method, path string, body any) error
	MustSucceed(principal, method, path string, body any) error
}

// RegisterSteps registers engine configuration and allocation steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &allocationSteps{tc: tc, owner: "owner"}

	// Owner configuration
	ctx.Step(`^the owner sets quotas to total (\d+), whitelist (\d+) and admin (\d+)$`, steps.setQuotas)
	ctx.Step(`^"([^"]*)" is pre-approved$`, steps.preApprove)
	ctx.Step(`^"([^"]*)" is a privileged operator$`, steps.grantPrivilege)
	ctx.Step(`^the owner (opens|closes) the public sale$`, steps.setSale)
	ctx.Step(`^the owner (pauses|unpauses) the system$`, steps.setPaused)
	ctx.Step(`^the owner tries to (set quotas|open the public sale|pre-approve "[^"]*"|grant operator rights to "[^"]*"|set the metadata prefix)$`, steps.tryConfigure)

	// Allocation
	ctx.Step(`^"([^"]*)" mints (\d+) tokens? on the (whitelist|public|admin) channel$`, steps.mintMany)
	ctx.Step(`^"([^"]*)" tries to mint on the (whitelist|public|admin) channel$`, steps.tryMint)
}

type allocationSteps struct {
	tc     TestContext
	owner  string
	nextID uint64
}

func (s *allocationSteps) mintBody() map[string]any {
	s.nextID++
	return map[string]any{
		"id":           s.nextID,
		"name":         fmt.Sprintf("token-%d", s.nextID),
		"metadata_ref": fmt.Sprintf("ref-%d", s.nextID),
	}
}

func (s *allocationSteps) setQuotas(total, whitelist, admin int64) error {
	body := map[string]int64{"total": total, "whitelist": whitelist, "admin": admin}
	return s.tc.MustSucceed(s.owner, http.MethodPut, "/v1/admin/quotas", body)
}

func (s *allocationSteps) preApprove(principal string) error {
	return s.tc.MustSucceed(s.owner, http.MethodPut, "/v1/admin/pre-approved/"+principal, map[string]bool{"status": true})
}

func (s *allocationSteps) grantPrivilege(principal string) error {
	return s.tc.MustSucceed(s.owner, http.MethodPut, "/v1/admin/privileged/"+principal, map[string]bool{"status": true})
}

func (s *allocationSteps) setSale(action string) error {
	return s.tc.MustSucceed(s.owner, http.MethodPut, "/v1/admin/sale", map[string]bool{"active": action == "opens"})
}

func (s *allocationSteps) setPaused(action string) error {
	path := "/v1/admin/pause"
	if action == "unpauses" {
		path = "/v1/admin/unpause"
	}
	return s.tc.MustSucceed(s.owner, http.MethodPost, path, nil)
}

func (s *allocationSteps) tryConfigure(change string) error {
	var target string
	switch change {
	case "set quotas":
		return s.tc.Do(s.owner, http.MethodPut, "/v1/admin/quotas", map[string]int64{"total": 20, "whitelist": 5, "admin": 5})
	case "open the public sale":
		return s.tc.Do(s.owner, http.MethodPut, "/v1/admin/sale", map[string]bool{"active": true})
	case "set the metadata prefix":
		return s.tc.Do(s.owner, http.MethodPut, "/v1/admin/metadata-prefix", map[string]string{"prefix": "ipfs://new/"})
	}
	if _, err := fmt.Sscanf(change, "pre-approve %q", &target); err == nil {
		return s.tc.Do(s.owner, http.MethodPut, "/v1/admin/pre-approved/"+target, map[string]bool{"status": true})
	}
	if _, err := fmt.Sscanf(change, "grant operator rights to %q", &target); err == nil {
		return s.tc.Do(s.owner, http.MethodPut, "/v1/admin/privileged/"+target, map[string]bool{"status": true})
	}
	return fmt.Errorf("unknown configuration change %q", change)
}

func (s *allocationSteps) mintMany(principal string, n int, channel string) error {
	for i := 0; i < n; i++ {
		if err := s.tc.MustSucceed(principal, http.MethodPost, "/v1/mint/"+channel, s.mintBody()); err != nil {
			return fmt.Errorf("mint %d of %d: %w", i+1, n, err)
		}
	}
	return nil
}

func (s *allocationSteps) tryMint(principal, channel string) error {
	return s.tc.Do(principal, http.MethodPost, "/v1/mint/"+channel, s.mintBody())
}
