package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/orchestrator"
)

func newLoginCmd(a *app) *cobra.Command {
	var profileName string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "인증서로 로그인한 뒤 브라우저를 열어 둡니다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.prompter.Close()
			ctx := cmd.Context()

			sess, portal, err := a.openPortal(ctx, profileName)
			if err != nil {
				return err
			}
			defer sess.Close()

			o, err := orchestrator.New(a.cfg, portal, a.prompter, nil, a.logger)
			if err != nil {
				return err
			}
			runID, loginErr := o.Login(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Info("브라우저를 열어 둡니다", zap.String("run_id", runID), zap.Bool("logged_in", loginErr == nil))
			holdBrowser(ctx, sess, a.prompter, a.logger, "종료하려면 Enter를 누르세요: ")
			return loginErr
		},
	}
	loginCmd.Flags().Bool("dev", false, "개발자 모드: 인증서 재시도 전에 확인을 받습니다")
	loginCmd.Flags().StringVarP(&profileName, "profile", "p", "", "사용할 브라우저 프로필 (기본값: browser.default_profile)")
	return loginCmd
}
