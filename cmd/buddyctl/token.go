package main

import (
	"fmt"

	"studybuddy_backend/internal/model"
	"studybuddy_backend/internal/util"
	"studybuddy_backend/pkg/database"

	"github.com/spf13/cobra"
)

// 本地联调用，密钥取自服务端同一份配置
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token signed with the configured JWT secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is not configured")
		}

		email, _ := cmd.Flags().GetString("email")
		userID, _ := cmd.Flags().GetString("user-id")
		if userID == "" {
			userID = database.DemoUserID(email)
		}
		if !model.IsUUID(userID) {
			return fmt.Errorf("user id %q is not a uuid", userID)
		}

		token, err := util.GenerateJWT(userID, email, cfg.JWT.Secret, cfg.JWT.ExpireTime)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("email", "amina.mohamed@demo.com", "Email claim; also selects the seeded demo user")
	tokenCmd.Flags().String("user-id", "", "Explicit user id (uuid)")
}
