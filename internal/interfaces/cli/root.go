package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/application/dto"
	"github.com/jhoicas/moysklad-audit/internal/domain"
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
	"github.com/jhoicas/moysklad-audit/pkg/config"
)

// ErrRunFailed alguna auditoría terminó con estado error (código de salida distinto de cero).
var ErrRunFailed = errors.New("la auditoría terminó con error")

// Deps dependencias de los comandos.
type Deps struct {
	// Service se construye al ejecutar un comando que lo necesita.
	Service       func() (*check.Service, error)
	JWT           config.JWTConfig
	Location      *time.Location
	DefaultRegion string
	Now           func() time.Time
}

// NewRootCmd árbol de comandos de la CLI.
func NewRootCmd(deps Deps) *cobra.Command {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	root := &cobra.Command{
		Use:           "audit",
		Short:         "Аудит документов МойСклад",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCheckCmd(deps),
		newCheckAllCmd(deps),
		newRunsCmd(deps),
		newTokenCmd(deps),
	)
	return root
}

type periodFlags struct {
	from, to string
}

func (p *periodFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.from, "from", "", "начало периода YYYY-MM-DD (по умолчанию вчера)")
	cmd.Flags().StringVar(&p.to, "to", "", "конец периода YYYY-MM-DD (по умолчанию = from)")
}

func (p *periodFlags) resolve(deps Deps) (time.Time, time.Time, error) {
	if p.from == "" && p.to == "" {
		from, to := check.DefaultPeriod(deps.Now().In(deps.Location))
		return from, to, nil
	}
	fromStr, toStr := p.from, p.to
	if fromStr == "" {
		fromStr = toStr
	}
	if toStr == "" {
		toStr = fromStr
	}
	from, err := time.ParseInLocation(time.DateOnly, fromStr, deps.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --from debe tener formato YYYY-MM-DD", domain.ErrInvalidInput)
	}
	to, err := time.ParseInLocation(time.DateOnly, toStr, deps.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --to debe tener formato YYYY-MM-DD", domain.ErrInvalidInput)
	}
	return from, to, nil
}

func newCheckCmd(deps Deps) *cobra.Command {
	var (
		period  periodFlags
		region  string
		asJSON  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "check <document-type>",
		Short: "Проверить документы одного типа за период",
		Long: `Проверяет документы указанного типа (contractors, shipments, sales, commission,
salesReturns, retailReturns, commissionReturns) за период и выводит найденные ошибки.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := entity.ParseDocumentType(args[0])
			if err != nil {
				return err
			}
			if region == "" {
				region = deps.DefaultRegion
			}
			reg, err := entity.ParseRegion(region)
			if err != nil {
				return err
			}
			from, to, err := period.resolve(deps)
			if err != nil {
				return err
			}
			svc, err := deps.Service()
			if err != nil {
				return err
			}

			run, err := svc.RunCheck(cmd.Context(), typ, reg, from, to)
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), dto.NewCheckRunResponse(run)); err != nil {
					return err
				}
			} else {
				printRun(cmd.OutOrStdout(), run, verbose)
			}
			if run.Report.Failed() {
				return fmt.Errorf("%w: %s", ErrRunFailed, run.Report.ErrorMessage)
			}
			return nil
		},
	}
	period.bind(cmd)
	cmd.Flags().StringVarP(&region, "region", "r", "", "регион: RB, RF, KZ")
	cmd.Flags().BoolVar(&asJSON, "json", false, "вывод в JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "показать все ошибки по документам")
	return cmd
}

func newCheckAllCmd(deps Deps) *cobra.Command {
	var (
		period  periodFlags
		regions []string
	)
	cmd := &cobra.Command{
		Use:   "check-all",
		Short: "Проверить все типы документов в одном или нескольких регионах",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed := make([]entity.Region, 0, len(regions))
			for _, r := range regions {
				reg, err := entity.ParseRegion(r)
				if err != nil {
					return err
				}
				parsed = append(parsed, reg)
			}
			from, to, err := period.resolve(deps)
			if err != nil {
				return err
			}
			svc, err := deps.Service()
			if err != nil {
				return err
			}
			if len(parsed) == 0 {
				parsed = svc.Regions()
			}

			byRegion, err := svc.RunRegions(cmd.Context(), parsed, from, to)
			if err != nil {
				return err
			}
			failed := 0
			for _, reg := range parsed {
				for _, run := range byRegion[reg] {
					printRun(cmd.OutOrStdout(), run, false)
					if run.Report.Failed() {
						failed++
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d проверок", ErrRunFailed, failed)
			}
			return nil
		},
	}
	period.bind(cmd)
	cmd.Flags().StringSliceVarP(&regions, "region", "r", nil, "регионы через запятую (по умолчанию все настроенные)")
	return cmd
}

func newRunsCmd(deps Deps) *cobra.Command {
	var (
		region, docType string
		limit           int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "История проверок",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := entity.CheckRunFilter{Limit: limit}
			if region != "" {
				reg, err := entity.ParseRegion(region)
				if err != nil {
					return err
				}
				filter.Region = reg
			}
			if docType != "" {
				typ, err := entity.ParseDocumentType(docType)
				if err != nil {
					return err
				}
				filter.DocumentType = typ
			}
			svc, err := deps.Service()
			if err != nil {
				return err
			}
			runs, err := svc.Runs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "Проверок нет.")
				return nil
			}
			for _, run := range runs {
				s := dto.NewCheckRunSummary(run)
				fmt.Fprintf(out, "%s  %s  %-18s %s..%s  %s  всего %d, с ошибками %d\n",
					s.ID, s.Region, s.DocumentType, s.DateFrom, s.DateTo, s.Status, s.Total, s.WithErrors)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&region, "region", "r", "", "фильтр по региону")
	cmd.Flags().StringVarP(&docType, "type", "t", "", "фильтр по типу документа")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "количество записей")
	return cmd
}

func newTokenCmd(deps Deps) *cobra.Command {
	var subject, role string
	var minutes int
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить JWT для HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if minutes <= 0 {
				minutes = deps.JWT.Expiration
			}
			tok, err := issueToken(deps.JWT, subject, role, minutes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "субъект токена")
	cmd.Flags().StringVar(&role, "role", "viewer", "роль: admin или viewer")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "срок действия в минутах (по умолчанию JWT_EXPIRATION_MINUTES)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRun resumen de una ejecución; con verbose, los hallazgos de cada documento.
func printRun(w io.Writer, run *entity.CheckRun, verbose bool) {
	r := run.Report
	period := run.DateFrom.Format("02.01.2006") + " - " + run.DateTo.Format("02.01.2006")
	if r.Failed() {
		fmt.Fprintf(w, "%s %s за %s: ❌ %s\n", run.DocumentType.Label(), run.Region, period, r.ErrorMessage)
		return
	}
	fmt.Fprintf(w, "%s %s за %s: всего %d, без ошибок %d, пропущено %d, с ошибками %d\n",
		run.DocumentType.Label(), run.Region, period, r.Total, r.Valid, r.Skipped, len(r.Errors))
	if !verbose {
		return
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  • %s (%s)\n", e.Label(), e.Owner)
		fmt.Fprintf(w, "      %s\n", strings.Join(e.IssueTexts(), "\n      "))
		if e.Link != "" {
			fmt.Fprintf(w, "      %s\n", e.Link)
		}
	}
}
