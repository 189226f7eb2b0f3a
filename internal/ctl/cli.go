package ctl

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8000"

// BuildRootCmd constructs the inpaintctl command tree.
func BuildRootCmd() *cobra.Command {
	server := defaultServer
	if v := os.Getenv("INPAINTD_SERVER"); v != "" {
		server = v
	}

	root := &cobra.Command{
		Use:           "inpaintctl",
		Short:         "Client for an inpaintd server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", server, "inpaintd base URL (defaults INPAINTD_SERVER)")

	var description, color, output string
	inpaintCmd := &cobra.Command{
		Use:     "inpaint <image-file>",
		Short:   "Submit an image for inpainting and save the result",
		Example: "  inpaintctl inpaint dock.jpg --description 'forest landscape' --color green -o inpainted.jpg",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := NewClient(server).Inpaint(cmd.Context(), args[0], description, color)
			if err != nil {
				return err
			}
			if err := SaveBase64Image(res.Image, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%dx%d)\nprompt used: %s\n", output, res.Width, res.Height, res.PromptUsed)
			return nil
		},
	}
	inpaintCmd.Flags().StringVar(&description, "description", "", "Theme description")
	inpaintCmd.Flags().StringVar(&color, "color", "", "Theme color")
	inpaintCmd.Flags().StringVarP(&output, "output", "o", "inpainted_result.jpg", "Output file")
	root.AddCommand(inpaintCmd)

	var pDescription, pColor, pOutput string
	predictCmd := &cobra.Command{
		Use:   "predict <image-file>",
		Short: "Submit an image through the array-encoded endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := NewClient(server).Predict(cmd.Context(), args[0], pDescription, pColor)
			if err != nil {
				return err
			}
			if len(res.Data) == 0 {
				return fmt.Errorf("predict returned no image")
			}
			if err := SaveBase64Image(res.Data[0], pOutput); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%.2fs)\n", pOutput, res.Duration)
			return nil
		},
	}
	predictCmd.Flags().StringVar(&pDescription, "description", "", "Theme description")
	predictCmd.Flags().StringVar(&pColor, "color", "", "Theme color")
	predictCmd.Flags().StringVarP(&pOutput, "output", "o", "inpainted_result.jpg", "Output file")
	root.AddCommand(predictCmd)

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show pipeline state and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := NewClient(server).Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "state: %s\nmodel: %s\nbackend: %s\nsteps: %d\nguidance: %g\nuptime: %ds\n",
				st.State, st.ModelID, st.BackendURL, st.Steps, st.GuidanceScale, st.UptimeSeconds)
			if st.LastError != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "last error: %s\n", st.LastError)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Show the service banner and availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := NewClient(server).Root(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", info.Message, info.Status)
			return nil
		},
	})

	var tiOutput string
	testImageCmd := &cobra.Command{
		Use:   "test-image",
		Short: "Fetch the synthetic gradient image",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := NewClient(server).TestImage(cmd.Context())
			if err != nil {
				return err
			}
			if err := SaveBase64Image(res.Image, tiOutput); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%dx%d)\n", tiOutput, res.Width, res.Height)
			return nil
		},
	}
	testImageCmd.Flags().StringVarP(&tiOutput, "output", "o", "test_image.jpg", "Output file")
	root.AddCommand(testImageCmd)

	return root
}
