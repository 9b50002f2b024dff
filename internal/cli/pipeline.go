package cli

import (
	"github.com/spf13/cobra"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

func newInitDBCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create or migrate the configured store",
		Long:  `Open the configured store, applying any pending migrations, and report its health.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.k.Store.Ping(cmd.Context()); err != nil {
				return err
			}
			return a.print(cmd, map[string]string{"status": "ok"})
		},
	}
}

func newIngestMemoryCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ingest-memory",
		Short: "Ingest a memory as a promotion candidate",
		Long: `Ingest a memory from a JSON, YAML or Markdown file. A Markdown body
becomes the memory content unless the front matter sets one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var m domain.Memory
			if err := loadFixture(file, "content", &m); err != nil {
				return err
			}
			res, err := a.k.Pipeline.IngestMemory(cmd.Context(), m)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Memory payload (.json, .yaml, .md)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMemoryToExperienceCmd(a *app) *cobra.Command {
	var memoryID, summary, outcome string
	cmd := &cobra.Command{
		Use:   "memory-to-experience",
		Short: "Derive a candidate experience from a memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.k.Pipeline.MemoryToExperience(cmd.Context(), memoryID, summary, outcome)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&memoryID, "memory-id", "", "Source memory id")
	cmd.Flags().StringVar(&summary, "summary", "", "Episode summary")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Episode outcome")
	_ = cmd.MarkFlagRequired("memory-id")
	return cmd
}

func newUpsertPersonaCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "upsert-persona",
		Short: "Insert or replace a persona",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p domain.Persona
			if err := loadFixture(file, "", &p); err != nil {
				return err
			}
			res, err := a.k.Pipeline.UpsertPersona(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Persona payload (.json, .yaml, .md)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExperienceToCognitionCmd(a *app) *cobra.Command {
	var experienceID, personaID string
	cmd := &cobra.Command{
		Use:   "experience-to-cognition",
		Short: "Run the persona gate and derive a cognition",
		Long: `Evaluate the persona's boundaries against the experience. On a pass a
cognition is derived; on a block the result reports the boundary hits and
nothing is created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.k.Pipeline.ExperienceToCognition(cmd.Context(), experienceID, personaID)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&experienceID, "experience-id", "", "Source experience id")
	cmd.Flags().StringVar(&personaID, "persona-id", "", "Persona to gate against")
	_ = cmd.MarkFlagRequired("experience-id")
	_ = cmd.MarkFlagRequired("persona-id")
	return cmd
}

func newIngestCognitionCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ingest-cognition",
		Short: "Ingest a cognition directly",
		Long: `Ingest a cognition from a JSON, YAML or Markdown file. A Markdown body
becomes the rule unless the front matter sets one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var c domain.Cognition
			if err := loadFixture(file, "rule", &c); err != nil {
				return err
			}
			res, err := a.k.Pipeline.IngestCognition(cmd.Context(), c)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Cognition payload (.json, .yaml, .md)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCognitionToDecisionCmd(a *app) *cobra.Command {
	var cognitionID, requestRef, risk string
	cmd := &cobra.Command{
		Use:   "cognition-to-decision",
		Short: "Evaluate a cognition for one request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.k.Pipeline.CognitionToDecision(cmd.Context(), cognitionID, requestRef, domain.Tier(risk))
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&cognitionID, "cognition-id", "", "Cognition id")
	cmd.Flags().StringVar(&requestRef, "request-ref", "", "Reference of the request being decided")
	cmd.Flags().StringVar(&risk, "risk-tier", "", "Override risk tier (low, medium, high)")
	_ = cmd.MarkFlagRequired("cognition-id")
	_ = cmd.MarkFlagRequired("request-ref")
	return cmd
}

func newBlockedDecisionCmd(a *app) *cobra.Command {
	var req service.BlockedDecisionRequest
	var risk string
	cmd := &cobra.Command{
		Use:   "blocked-decision",
		Short: "Record the decision for a persona-blocked experience",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.RiskTier = domain.Tier(risk)
			res, err := a.k.Pipeline.BlockedPromotionToDecision(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&req.ExperienceID, "experience-id", "", "Blocked experience id")
	cmd.Flags().StringVar(&req.PersonaID, "persona-id", "", "Persona (defaults to the one that blocked)")
	cmd.Flags().StringVar(&req.RequestRef, "request-ref", "", "Request reference (defaults to blocked:<experience-id>)")
	cmd.Flags().StringSliceVar(&req.BoundaryHits, "boundary-hit", nil, "Boundary hits (defaults to the recorded ones)")
	cmd.Flags().StringVar(&risk, "risk-tier", "", "Risk tier")
	_ = cmd.MarkFlagRequired("experience-id")
	return cmd
}

func newRunFullPathCmd(a *app) *cobra.Command {
	var memoryFile, personaFile, risk string
	var req service.FullPathRequest
	cmd := &cobra.Command{
		Use:   "run-full-path",
		Short: "Promote a memory all the way to a decision",
		Long: `Ingest the memory, derive an experience, upsert the persona, run the gate
and record either the cognition decision or the blocked decision.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadFixture(memoryFile, "content", &req.Memory); err != nil {
				return err
			}
			if err := loadFixture(personaFile, "", &req.Persona); err != nil {
				return err
			}
			req.RiskTier = domain.Tier(risk)
			res, err := a.k.Pipeline.RunFullPath(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&memoryFile, "memory-file", "", "Memory payload")
	cmd.Flags().StringVar(&personaFile, "persona-file", "", "Persona payload")
	cmd.Flags().StringVar(&req.EpisodeSummary, "summary", "", "Episode summary")
	cmd.Flags().StringVar(&req.Outcome, "outcome", "", "Episode outcome")
	cmd.Flags().StringVar(&req.RequestRef, "request-ref", "", "Request reference")
	cmd.Flags().StringVar(&risk, "risk-tier", "", "Risk tier override")
	_ = cmd.MarkFlagRequired("memory-file")
	_ = cmd.MarkFlagRequired("persona-file")
	_ = cmd.MarkFlagRequired("request-ref")
	return cmd
}
