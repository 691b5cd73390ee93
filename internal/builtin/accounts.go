package builtin

import (
	"context"

	"github.com/hychen/redspot/internal/core"
)

func registerAccounts(reg *core.Registry) {
	reg.Task("accounts").
		SetDescription("List the active network's signer addresses").
		SetAction(func(ctx context.Context, env *core.Environment, _ core.Arguments, _ core.RunSuper) (any, error) {
			if err := env.Network.LoadSigners(); err != nil {
				return nil, err
			}
			signers := env.Network.Signers()
			addrs := make([]string, 0, len(signers))
			for _, s := range signers {
				addrs = append(addrs, s.Address())
			}
			return addrs, nil
		})
}
