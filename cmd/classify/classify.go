// Package classify reports the category of individual fiscal documents
// without writing anything.
package classify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"fjacquet/fiscal-organizer/cmd/root"
	"fjacquet/fiscal-organizer/internal/classifier"
	"fjacquet/fiscal-organizer/internal/fileutils"
	"fjacquet/fiscal-organizer/internal/fiscalerror"
	"fjacquet/fiscal-organizer/internal/models"
	"fjacquet/fiscal-organizer/internal/organizer"

	"github.com/spf13/cobra"
)

// Explain prints every strategy attempt next to the chosen category.
var Explain bool

// Cmd represents the classify command
var Cmd = &cobra.Command{
	Use:   "classify FILE...",
	Short: "Classify fiscal documents",
	Long: `Classify fiscal documents by filename, XML structure or text markers and
print the resulting category. Pass --cnpj to resolve entry vs exit for NF-e and CT-e.`,
	Args: cobra.MinimumNArgs(1),
	RunE: classifyFunc,
}

func init() {
	Cmd.Flags().BoolVarP(&Explain, "explain", "e", false, "Show every strategy attempt")
}

func classifyFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Container()
	if err != nil {
		return err
	}

	company, err := companyForClassify(root.CompanyInput(), c.GetDirectory())
	if err != nil {
		return err
	}

	docs, err := fileutils.CollectDocuments(args)
	if err != nil {
		return err
	}
	root.Log.Debug(fmt.Sprintf("Classifying %d documents", len(docs)))

	return WriteClassifications(cmd.Context(), cmd.OutOrStdout(), c.GetClassifier(), docs, company, Explain)
}

// WriteClassifications prints one tab-separated line per document:
// name, category, strategy and reason. With explain set, the strategy
// summary is appended. Files that could not be read print "-" and the error.
func WriteClassifications(ctx context.Context, w io.Writer, clf *classifier.Classifier, docs []models.Document, company models.CompanyContext, explain bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, doc := range docs {
		if readErr := doc.ReadErr(); readErr != nil {
			if _, err := fmt.Fprintf(w, "%s\t-\tunreadable\t%v\n", doc.Name, readErr); err != nil {
				return err
			}
			continue
		}
		if explain {
			results := clf.Explain(ctx, doc, company)
			best := results.Best()
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t[%s]\n", doc.Name, best.Category, best.Strategy, best.Reason, results.Summary()); err != nil {
				return err
			}
			continue
		}
		cl := clf.Classify(ctx, doc, company)
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", doc.Name, cl.Category, cl.Strategy, cl.Reason); err != nil {
			return err
		}
	}
	return nil
}

// companyForClassify accepts an empty company name: only the CNPJ matters here.
// A missing CNPJ is looked up by company name in directory.
func companyForClassify(in models.CompanyContext, directory organizer.TaxIDLookup) (models.CompanyContext, error) {
	taxID := in.TaxID
	if strings.TrimSpace(taxID) == "" && strings.TrimSpace(in.Name) != "" && directory != nil {
		if found, ok := directory.Lookup(in.Name); ok {
			taxID = found
		}
	}
	cnpj := models.NormalizeCNPJ(taxID)
	if cnpj != "" && !models.IsValidCNPJFormat(cnpj) {
		return models.CompanyContext{}, &fiscalerror.PreconditionError{
			Field:  "cnpj",
			Reason: "tax identifier must have exactly 14 digits",
		}
	}
	return models.CompanyContext{Name: models.SanitizeName(in.Name), TaxID: cnpj}, nil
}
