package main

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/McManning/stakeholder/internal/access"
	"github.com/McManning/stakeholder/internal/access/policy"
	"github.com/McManning/stakeholder/internal/access/policy/rules"
	"github.com/McManning/stakeholder/internal/config"
	"github.com/McManning/stakeholder/internal/logging"
	"github.com/McManning/stakeholder/internal/store"
)

// Default timeout for a single check.
const defaultCheckTimeout = 10 * time.Second

// errDenied marks a denied check under --fail-deny so main can exit 2.
var errDenied = errors.New("access denied")

// checkConfig holds configuration for the check command.
type checkConfig struct {
	user     string
	realm    string
	id       string
	parents  []string
	action   string
	failDeny bool
	timeout  time.Duration
}

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	cfg := &checkConfig{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a single permission check",
		Long: `Evaluate one permission check against the rules file and print the
verdict (deny or abstain). A verdict of abstain means no rule claimed
the resource and the decision falls through to whatever policy runs
next in the deployment.

Resources in unknown realms are checked against the nearest ticket in
their parent chain; pass --parent (repeatable, innermost first) to
provide that chain. With --fail-deny a denied check exits 2 so scripts
can branch on the verdict.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.user, "user", "", "username the check runs as")
	cmd.Flags().StringVar(&cfg.realm, "realm", access.RealmWiki, "resource realm (wiki, ticket, milestone, or custom)")
	cmd.Flags().StringVar(&cfg.id, "id", "", "resource id: page path, ticket number, or milestone name")
	cmd.Flags().StringArrayVar(&cfg.parents, "parent", nil, `parent resource as "realm:id", innermost first (repeatable)`)
	cmd.Flags().StringVar(&cfg.action, "action", "WIKI_VIEW", "requested action, recorded in logs")
	cmd.Flags().BoolVar(&cfg.failDeny, "fail-deny", false, "exit 2 when the verdict is deny")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultCheckTimeout, "timeout for the check (e.g., 10s, 1m)")

	return cmd
}

func runCheck(cmd *cobra.Command, cfg *checkConfig) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.SetDefault("stakeholder", version, appCfg.Log.Format, appCfg.Log.Level)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	res, err := buildResource(cfg.realm, cfg.id, cfg.parents)
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(ctx, appCfg)
	if err != nil {
		return err
	}
	defer cleanup()

	verdict, err := engine.Check(ctx, cfg.action, cfg.user, res)
	if err != nil {
		return err
	}

	cmd.Println(verdict.String())

	if cfg.failDeny && verdict == access.VerdictDeny {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return errDenied
	}
	return nil
}

// buildResource assembles the resource and its parent chain from the
// --realm/--id flags and the --parent references, innermost first.
func buildResource(realm, id string, parents []string) (*access.Resource, error) {
	res := &access.Resource{Realm: realm, ID: id}

	node := res
	for _, ref := range parents {
		parentRealm, parentID := access.ParseRef(ref)
		if parentRealm == "" {
			return nil, oops.Code("INVALID_PARENT").
				Errorf("parent reference %q must have the form realm:id", ref)
		}
		node.Parent = &access.Resource{Realm: parentRealm, ID: parentID}
		node = node.Parent
	}
	return res, nil
}

// buildEngine wires a policy engine from the application config: the
// rules file, the static group map, and, when a database URL is
// configured, the PostgreSQL grant and ticket stores. The returned
// cleanup closes the pool if one was opened.
func buildEngine(ctx context.Context, appCfg *config.Config) (*policy.Engine, func(), error) {
	rulesStore := rules.NewStore(rules.NewFileSource(appCfg.RulesPath))

	var providers []policy.GroupProvider
	if len(appCfg.StaticGroups) > 0 {
		providers = append(providers, policy.StaticGroups(appCfg.StaticGroups))
	}

	var (
		grants  policy.GrantSource
		tickets policy.TicketStore
		cleanup = func() {}
	)
	if appCfg.DatabaseURL != "" {
		pool, err := store.Connect(ctx, appCfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup = pool.Close

		perms := store.NewPostgresPermissionStore(pool)
		providers = append(providers, perms)
		grants = perms
		tickets = store.NewPostgresTicketStore(pool)
	}

	engine := policy.NewEngine(rulesStore, policy.NewResolver(grants, providers...), tickets)
	return engine, cleanup, nil
}
