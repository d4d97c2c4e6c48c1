package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warp/hierarchy-engine/api"
	"github.com/warp/hierarchy-engine/hierarchy"
	"github.com/warp/hierarchy-engine/store/sqlite"
)

// =============================================================================
// SEED
// =============================================================================

func newSeedCmd(a *app) *cobra.Command {
	var scenario string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset the database and load a demo scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := sqlite.New(a.cfg.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := api.LoadScenarioData(cmd.Context(), store, scenario, a.logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded scenario %s into %s\n", scenario, a.cfg.DB)
			return nil
		},
	}
	var ids []string
	for _, s := range api.Scenarios() {
		ids = append(ids, s.ID)
	}
	cmd.Flags().StringVar(&scenario, "scenario", "riverside-chain", "Scenario id: "+strings.Join(ids, ", "))
	return cmd
}

// =============================================================================
// SUGGEST
// =============================================================================

func newSuggestCmd(a *app) *cobra.Command {
	var (
		areaID, areaName string
		excludeAssigned  bool
		exclude          []string
	)

	cmd := &cobra.Command{
		Use:   "suggest [query...]",
		Short: "Rank the people of an area against a name query",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := hierarchy.AreaRef{ID: areaID, Name: areaName}
			if ref.IsZero() {
				return errors.New("--area or --area-name is required")
			}
			src, closeFn, err := openSource(a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			dir := hierarchy.NewDirectory(src, a.logger)
			people, err := dir.Load(cmd.Context(), ref)
			if err != nil {
				return err
			}

			skip := hierarchy.ExcludeIDs(exclude...)
			if excludeAssigned {
				for id := range hierarchy.ExcludeAssigned(people) {
					skip[id] = struct{}{}
				}
			}

			return printJSON(cmd.OutOrStdout(), dir.Suggest(strings.Join(args, " "), skip))
		},
	}
	cmd.Flags().StringVar(&areaID, "area", "", "Area id")
	cmd.Flags().StringVar(&areaName, "area-name", "", "Area display name")
	cmd.Flags().BoolVar(&excludeAssigned, "exclude-assigned", false, "Skip people who already hold a tier")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Person ids to skip")
	return cmd
}

// =============================================================================
// ASSIGN / TAG
// =============================================================================

func newAssignCmd(a *app) *cobra.Command {
	var req hierarchy.AssignRequest
	var tier string

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a person to a tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.PersonID == "" {
				return errors.New("--person is required")
			}
			t, err := hierarchy.ParseTier(tier)
			if err != nil {
				return err
			}
			req.Tier = t

			src, closeFn, err := openSource(a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := hierarchy.NewAssigner(src, nil, a.logger).Assign(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&req.PersonID, "person", "", "Person id")
	cmd.Flags().StringVar(&tier, "tier", "", "Target tier: chair, sub_chair, section_chief, cell_leader, member")
	cmd.Flags().StringVar(&req.ParentID, "parent", "", "Person id of the parent (below sub_chair)")
	cmd.Flags().StringVar(&req.Zone, "zone", "", "Zone for the new record (defaults to the person's zone)")
	return cmd
}

func newTagCmd(a *app) *cobra.Command {
	var personID, tag string

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Tag a person as observer, safety_officer or mediator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if personID == "" {
				return errors.New("--person is required")
			}
			src, closeFn, err := openSource(a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			p, err := hierarchy.NewAssigner(src, nil, a.logger).TagFunctionary(cmd.Context(), personID, tag)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "Person id")
	cmd.Flags().StringVar(&tag, "tag", "", "Functionary tag")
	return cmd
}

// =============================================================================
// UPLINE / DOWNLINE
// =============================================================================

func newUplineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upline <person-id>",
		Short: "Print a person's ancestors, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd, a, args[0], func(r *hierarchy.Resolver, p hierarchy.Person) any {
				return api.UplineResponse{PersonID: p.ID, Tier: p.Tier, Upline: r.Upline(cmd.Context(), p)}
			})
		},
	}
}

func newDownlineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "downline <person-id>",
		Short: "Print a person's direct children grouped by tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd, a, args[0], func(r *hierarchy.Resolver, p hierarchy.Person) any {
				return api.DownlineResponse{PersonID: p.ID, Tier: p.Tier, Downline: r.Downline(cmd.Context(), p)}
			})
		},
	}
}

func withResolver(cmd *cobra.Command, a *app, personID string, fn func(*hierarchy.Resolver, hierarchy.Person) any) error {
	src, closeFn, err := openSource(a.cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	person, err := src.GetPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("person %s: %w", personID, err)
	}
	dir := hierarchy.NewDirectory(src, a.logger)
	_, _ = dir.Load(ctx, hierarchy.AreaByID(person.AreaID))

	return printJSON(cmd.OutOrStdout(), fn(hierarchy.NewResolver(src, dir, a.logger), person))
}
