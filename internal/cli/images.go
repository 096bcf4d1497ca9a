package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Коллекция изображений",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <url>",
		Short: "Добавить изображение по абсолютному http(s) URL",
		Args:  cobra.ExactArgs(1),
		Run:   runImagesAdd,
	})

	RootCmd.AddCommand(cmd)
}

func runImagesAdd(cmd *cobra.Command, args []string) {
	e, err := openEnv(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer e.Close()

	img, err := e.services.Sentences.AddImage(cmd.Context(), args[0])
	if err != nil {
		exitErr("add image", err)
	}
	printJSON(cmd.OutOrStdout(), img)
}
