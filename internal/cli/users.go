package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Отчёты по пользователям",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "report <id>",
		Short: "Профиль пользователя с распределением эмоций",
		Args:  cobra.ExactArgs(1),
		Run:   runUsersReport,
	})

	RootCmd.AddCommand(cmd)
}

func runUsersReport(cmd *cobra.Command, args []string) {
	e, err := openEnv(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer e.Close()

	profile, err := e.services.Users.Info(cmd.Context(), args[0])
	if err != nil {
		exitErr("report", err)
	}
	printJSON(cmd.OutOrStdout(), profile)
}
