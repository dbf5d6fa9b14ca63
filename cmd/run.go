package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/taxgo/internal/config"
	"github.com/xkilldash9x/taxgo/internal/orchestrator"
	"github.com/xkilldash9x/taxgo/internal/prompt"
	"github.com/xkilldash9x/taxgo/internal/sheet"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		profileName    string
		skipSheetCheck bool
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "시트에서 Y로 표시된 행으로 세금계산서를 건별발급합니다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.prompter.Close()
			return a.runIssue(cmd.Context(), profileName, skipSheetCheck)
		},
	}
	runCmd.Flags().Bool("dev", false, "개발자 모드: 인증서 재시도 전에 확인을 받습니다")
	runCmd.Flags().StringVarP(&profileName, "profile", "p", "", "사용할 브라우저 프로필 (기본값: browser.default_profile)")
	runCmd.Flags().BoolVar(&skipSheetCheck, "skip-sheet-check", false, "시트 입력 확인 질문을 건너뜁니다")
	return runCmd
}

func (a *app) runIssue(ctx context.Context, profileName string, skipSheetCheck bool) error {
	cfg, logger := a.cfg, a.logger
	if cfg.Dev {
		logger.Info("🔧 개발자 모드로 실행합니다")
	}
	if err := cfg.Sheet.Validate(); err != nil {
		return err
	}
	if !skipSheetCheck {
		if err := checkSheetInput(ctx, a.prompter, a.out, cfg.Sheet); err != nil {
			return err
		}
	}

	store, err := a.newStore(ctx, cfg.Sheet, logger)
	if err != nil {
		return err
	}
	book := sheet.NewBook(store, cfg.Sheet, logger)
	inv, err := book.ActiveInvoice(ctx)
	if errors.Is(err, sheet.ErrNoActiveRow) {
		logger.Warn("시트에서 Y/y 행을 찾지 못했습니다. 실행을 종료합니다")
		return err
	}
	if err != nil {
		return err
	}
	job := orchestrator.JobFromInvoice(inv, cfg.Buyer.BizNo)

	sess, portal, err := a.openPortal(ctx, profileName)
	if err != nil {
		return err
	}
	defer sess.Close()

	o, err := orchestrator.New(cfg, portal, a.prompter, book, logger)
	if err != nil {
		return err
	}
	res, err := o.Run(ctx, job)
	if err != nil {
		if ctx.Err() == nil {
			holdBrowser(ctx, sess, a.prompter, logger, "브라우저를 열어 두었습니다. 수동으로 마무리한 뒤 Enter를 누르면 종료합니다: ")
		}
		return err
	}
	printSummary(a.out, job, res)
	return nil
}

func printSummary(out io.Writer, job orchestrator.Job, res orchestrator.Result) {
	fmt.Fprintf(out, "\n발행 결과 (run %s)\n", res.RunID)
	fmt.Fprintf(out, "  사업자번호: %s  상호: %s\n", res.Buyer.BizNo, res.Buyer.Company)
	fmt.Fprintf(out, "  품목: %s  수량: %s  단가: %s\n", job.Item.Name, job.Item.Qty, job.Item.Price)
	fmt.Fprintf(out, "  합계: %s  공급가액: %s  세액: %s\n", res.Totals.Total, res.Totals.Supply, res.Totals.Tax)
	if res.Marker != "" {
		fmt.Fprintf(out, "  시트 R%d: %s\n", job.Row, res.Marker)
	}
}

// checkSheetInput offers to let the operator fill the sheet before the run
// reads it, and waits until they say they are done.
func checkSheetInput(ctx context.Context, p prompt.Prompter, out io.Writer, cfg config.SheetConfig) error {
	answer, err := p.Ask(ctx, "📋 구글시트에서 계산서발행 정보를 먼저 입력하시겠습니까? (y/n): ")
	if err != nil {
		return err
	}
	if !isYes(answer) {
		return nil
	}

	fmt.Fprintf(out, "\n📊 구글시트에서 계산서발행 정보를 입력해주세요: %s\n", cfg.URL())
	for {
		answer, err := p.Ask(ctx, "입력이 완료되어 계속 진행하려면 y를 입력하세요: ")
		if err != nil {
			return err
		}
		if isYes(answer) {
			fmt.Fprintln(out, "✅ 입력 완료 확인. 계속 진행합니다.")
			return nil
		}
		fmt.Fprintln(out, "⚠️ y를 입력해주세요.")
	}
}

func isYes(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
