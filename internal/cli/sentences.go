package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"reflexion-api/internal/domain"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sentences",
		Short: "Работа с коллекцией фраз",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import [file.json]",
		Short: "Импортировать фразы из JSON (файл или stdin)",
		Long:  "Ожидается массив объектов {title, body, end}. Фразы с уже существующим заголовком пропускаются.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runSentencesImport,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Показать количество фраз",
		Args:  cobra.NoArgs,
		Run:   runSentencesCount,
	})

	RootCmd.AddCommand(cmd)
}

func runSentencesImport(cmd *cobra.Command, args []string) {
	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		in = f
	}
	batch, err := readSentences(in)
	if err != nil {
		exitErr("parse json", err)
	}

	e, err := openEnv(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer e.Close()

	imported, err := e.services.Sentences.Import(cmd.Context(), batch)
	if err != nil {
		exitErr("import", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d,"skipped":%d}`+"\n", imported, len(batch)-imported)
}

func runSentencesCount(cmd *cobra.Command, _ []string) {
	e, err := openEnv(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer e.Close()

	n, err := e.services.Sentences.Count(cmd.Context())
	if err != nil {
		exitErr("count", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"count":%d}`+"\n", n)
}

// readSentences разбирает массив фраз; поле id игнорируется.
func readSentences(r io.Reader) ([]domain.Sentence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var batch []domain.Sentence
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	for i := range batch {
		batch[i].ID = ""
	}
	return batch, nil
}
