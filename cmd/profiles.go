package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/profile"
)

func newProfilesCmd(a *app) *cobra.Command {
	var create string
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "브라우저 프로필 목록을 출력하거나 새 프로필을 만듭니다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.Browser.UserDataParent
			out := cmd.OutOrStdout()

			if create != "" {
				prof, err := profile.Create(root, create)
				if err != nil {
					return err
				}
				a.logger.Info("프로필 생성", zap.String("name", prof.Name), zap.String("dir", prof.Dir))
				fmt.Fprintf(out, "'%s' 프로필이 생성되었습니다.\n", prof.Name)
				return nil
			}

			profiles, err := profile.Discover(root)
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Fprintln(out, "사용 가능한 프로필이 없습니다.")
				return nil
			}
			for i, prof := range profiles {
				marker := ""
				if prof.Name == profile.WithPrefix(a.cfg.Browser.DefaultProfile) {
					marker = " (기본)"
				}
				fmt.Fprintf(out, "%d. %s%s\n", i+1, prof.DisplayName(), marker)
			}
			return nil
		},
	}
	profilesCmd.Flags().StringVar(&create, "create", "", "새 프로필 이름")
	return profilesCmd
}
