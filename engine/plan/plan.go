// Package plan is the catalog of workspace subscription tiers: per-plan
// resource limits and feature flags that the quota accountant (C4) and rate
// limit accountant (C5) check against.
package plan

// Name enumerates the subscription tiers a Workspace can carry.
type Name string

const (
	Freemium   Name = "Freemium"
	Starter    Name = "Starter"
	Pro        Name = "Pro"
	Business   Name = "Business"
	Enterprise Name = "Enterprise"
)

// IsValid reports whether n names a known plan tier.
func (n Name) IsValid() bool {
	switch n {
	case Freemium, Starter, Pro, Business, Enterprise:
		return true
	default:
		return false
	}
}

// Feature enumerates the boolean capability flags a plan can grant.
type Feature string

const (
	FeatureWebhooks      Feature = "can_use_webhooks"
	FeatureScheduling    Feature = "can_use_scheduling"
	FeatureCustomScripts Feature = "can_use_custom_scripts"
	FeatureAPIAccess     Feature = "can_use_api_access"
	FeatureExportData    Feature = "can_export_data"
)

// Limits is the full set of quantitative ceilings a plan imposes.
type Limits struct {
	MaxMembers             int
	MaxWorkflows           int
	MaxCustomScripts       int
	MaxStorageBytes        int64
	MaxFileSizeBytes       int64
	MaxAPIKeys             int
	MaxMonthlyExecutions   int
	MaxConcurrentExecutions int
	APIRateLimitPerMinute  int
	APIRateLimitPerHour    int
	APIRateLimitPerDay     int
}

// Plan is one subscription tier's limits and feature flags.
type Plan struct {
	Name     Name
	Limits   Limits
	Features map[Feature]bool
}

// CanExportData is a capability probe only; no export pipeline is
// implemented, per the resolved Open Question on this feature.
func (p Plan) CanExportData() bool {
	return p.Features[FeatureExportData]
}

// HasFeature reports whether the plan grants f.
func (p Plan) HasFeature(f Feature) bool {
	return p.Features[f]
}

var catalog = map[Name]Plan{
	Freemium: {
		Name: Freemium,
		Limits: Limits{
			MaxMembers: 1, MaxWorkflows: 3, MaxCustomScripts: 0,
			MaxStorageBytes: 100 << 20, MaxFileSizeBytes: 5 << 20,
			MaxAPIKeys: 1, MaxMonthlyExecutions: 500, MaxConcurrentExecutions: 1,
			APIRateLimitPerMinute: 10, APIRateLimitPerHour: 200, APIRateLimitPerDay: 1000,
		},
		Features: map[Feature]bool{
			FeatureWebhooks: true, FeatureScheduling: false, FeatureCustomScripts: false,
			FeatureAPIAccess: false, FeatureExportData: false,
		},
	},
	Starter: {
		Name: Starter,
		Limits: Limits{
			MaxMembers: 3, MaxWorkflows: 15, MaxCustomScripts: 5,
			MaxStorageBytes: 1 << 30, MaxFileSizeBytes: 25 << 20,
			MaxAPIKeys: 3, MaxMonthlyExecutions: 5000, MaxConcurrentExecutions: 3,
			APIRateLimitPerMinute: 30, APIRateLimitPerHour: 1000, APIRateLimitPerDay: 10000,
		},
		Features: map[Feature]bool{
			FeatureWebhooks: true, FeatureScheduling: true, FeatureCustomScripts: true,
			FeatureAPIAccess: true, FeatureExportData: false,
		},
	},
	Pro: {
		Name: Pro,
		Limits: Limits{
			MaxMembers: 10, MaxWorkflows: 50, MaxCustomScripts: 25,
			MaxStorageBytes: 10 << 30, MaxFileSizeBytes: 100 << 20,
			MaxAPIKeys: 10, MaxMonthlyExecutions: 50000, MaxConcurrentExecutions: 10,
			APIRateLimitPerMinute: 100, APIRateLimitPerHour: 5000, APIRateLimitPerDay: 50000,
		},
		Features: map[Feature]bool{
			FeatureWebhooks: true, FeatureScheduling: true, FeatureCustomScripts: true,
			FeatureAPIAccess: true, FeatureExportData: true,
		},
	},
	Business: {
		Name: Business,
		Limits: Limits{
			MaxMembers: 50, MaxWorkflows: 250, MaxCustomScripts: 100,
			MaxStorageBytes: 100 << 30, MaxFileSizeBytes: 500 << 20,
			MaxAPIKeys: 50, MaxMonthlyExecutions: 500000, MaxConcurrentExecutions: 50,
			APIRateLimitPerMinute: 500, APIRateLimitPerHour: 20000, APIRateLimitPerDay: 200000,
		},
		Features: map[Feature]bool{
			FeatureWebhooks: true, FeatureScheduling: true, FeatureCustomScripts: true,
			FeatureAPIAccess: true, FeatureExportData: true,
		},
	},
	Enterprise: {
		Name: Enterprise,
		Limits: Limits{
			MaxMembers: -1, MaxWorkflows: -1, MaxCustomScripts: -1,
			MaxStorageBytes: -1, MaxFileSizeBytes: 5 << 30,
			MaxAPIKeys: -1, MaxMonthlyExecutions: -1, MaxConcurrentExecutions: 200,
			APIRateLimitPerMinute: 2000, APIRateLimitPerHour: 100000, APIRateLimitPerDay: 1000000,
		},
		Features: map[Feature]bool{
			FeatureWebhooks: true, FeatureScheduling: true, FeatureCustomScripts: true,
			FeatureAPIAccess: true, FeatureExportData: true,
		},
	},
}

// Get returns the catalog entry for name, or (Plan{}, false) for an unknown
// name. A Limits field of -1 means unlimited.
func Get(name Name) (Plan, bool) {
	p, ok := catalog[name]
	return p, ok
}

// Unlimited reports whether a Limits value means "no ceiling".
func Unlimited(limit int64) bool {
	return limit < 0
}
