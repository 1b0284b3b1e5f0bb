package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"atas/api/internal/convocation"
)

func NewConvocationCmd(deps *Dependencies) *cobra.Command {
	var (
		in         convocation.Input
		agendaFile string
	)

	cmd := &cobra.Command{
		Use:   "convocation",
		Short: "Print a meeting convocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agendaFile != "" {
				text, err := readInput(cmd, agendaFile)
				if err != nil {
					return err
				}
				in.AgendaText = text
			}
			text, err := convocation.Build(in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "meeting title")
	cmd.Flags().StringVar(&in.Format, "format", convocation.FormatInPerson, "PRESENCIAL, VIRTUAL or HIBRIDO")
	cmd.Flags().StringVar(&in.Date, "date", "", "meeting date (DD/MM/AAAA)")
	cmd.Flags().StringVar(&in.Time, "time", "", "meeting time (HH:MM)")
	cmd.Flags().StringVar(&in.AgendaText, "agenda", "", "agenda text")
	cmd.Flags().StringVar(&agendaFile, "agenda-file", "", "read the agenda text from a file")
	cmd.Flags().StringVar(&in.Signer, "signer", "", "closing signature")
	return cmd
}
