package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"plate-service/internal/app"
	"plate-service/internal/auth"
	"plate-service/internal/config"
	"plate-service/internal/logger"
	"plate-service/internal/model"
	"plate-service/internal/plate"
	"plate-service/internal/recognition"
	"plate-service/internal/service"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "platectl",
		Short:         "Plate recognition tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newNormalizeCommand(),
		newValidateCommand(),
		newVariantsCommand(),
		newAnalyzeCommand(),
		newRecognizeCommand(),
		newTokenCommand(),
	)
	return root
}

func newNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize TEXT...",
		Short: "Correct raw OCR text into a plate candidate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, raw := range args {
				corrected, ok := plate.Correct(raw)
				if !ok {
					fmt.Fprintf(out, "%s\t-\n", raw)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", raw, corrected)
			}
			return nil
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PLATE...",
		Short: "Check plates against the plate grammar",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, text := range args {
				shape := plate.Classify(text)
				if shape == plate.ShapeInvalid {
					invalid++
				}
				fmt.Fprintf(out, "%s\t%s\n", text, shape)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d plates rejected", invalid, len(args))
			}
			return nil
		},
	}
}

func newVariantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "variants PLATE",
		Short: "List confusion variants in lookup order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, v := range plate.Variants(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func newAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze TEXT",
		Short: "Show cleaning, correction, validity and variants as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, err := service.AnalyzePlate(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), analysis)
		},
	}
}

func newRecognizeCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "recognize IMAGE",
		Short: "Run the full recognition pipeline on an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Environment).Output(cmd.ErrOrStderr())

			components, err := app.Build(cfg, log)
			if err != nil {
				return err
			}
			defer components.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			outcome := components.Recognizer.Recognize(ctx, recognition.Request{
				ID:    uuid.NewString(),
				Image: image,
			})
			return writeJSON(cmd.OutOrStdout(), outcome)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall recognition timeout")
	return cmd
}

func newTokenCommand() *cobra.Command {
	var (
		role   string
		userID string
		ttl    time.Duration
		secret string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_ACCESS_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("JWT_ACCESS_SECRET or --secret is required")
			}

			userRole := model.UserRole(strings.ToUpper(role))
			if userRole != model.UserRoleAdmin && userRole != model.UserRoleGuard {
				return fmt.Errorf("unknown role %q", role)
			}

			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
				id = parsed
			}

			token, err := auth.NewParser(secret).Issue(id, userRole, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(model.UserRoleGuard), "ADMIN or GUARD")
	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (defaults to JWT_ACCESS_SECRET)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
