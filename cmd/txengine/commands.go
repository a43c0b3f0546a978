package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"sol-tx-engine/internal/consts"
	"sol-tx-engine/internal/logic/batchfetch"
	"sol-tx-engine/internal/logic/cancel"
	"sol-tx-engine/internal/logic/task"
	"sol-tx-engine/internal/logic/tokenops"
	"sol-tx-engine/internal/logic/txbuilder"
	"sol-tx-engine/internal/pkg/types"
	"sol-tx-engine/internal/svc"
	"sol-tx-engine/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

var errNoPayer = errors.New("wallet.keypair_path is not configured")

func runAccounts(s *cancel.Scope, svcCtx *svc.ServiceContext, args []string) error {
	fs := flag.NewFlagSet("accounts", flag.ContinueOnError)
	addrs := fs.String("addrs", "", "comma separated addresses")
	first := fs.Int("first", 0, "only the first N addresses")
	last := fs.Int("last", 0, "only the last N addresses")
	page := fs.Int("page", 0, "1-based page number")
	perPage := fs.Int("per-page", 10, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	keys, err := types.PubkeysFromBase58(splitList(*addrs))
	if err != nil {
		return err
	}
	fetcher := batchfetch.New(svcCtx.Accounts, keys, svcCtx.FetchOptions()...)

	var accounts []batchfetch.MaybeAccount
	switch {
	case *first > 0:
		accounts, err = fetcher.GetFirst(s.Context(), *first)
	case *last > 0:
		accounts, err = fetcher.GetLast(s.Context(), *last)
	case *page > 0:
		accounts, err = fetcher.GetPage(s.Context(), *page, *perPage)
	default:
		accounts, err = fetcher.Get(s.Context())
	}
	if err != nil {
		return err
	}

	for _, acc := range accounts {
		if !acc.Exists {
			fmt.Printf("%s\t<absent>\n", acc.PublicKey.ToBase58())
			continue
		}
		fmt.Printf("%s\t%s SOL\towner=%s\tdata=%d bytes\n",
			acc.PublicKey.ToBase58(),
			tokenops.FromBaseUnits(acc.Lamports, tokenops.SolDecimals).String(),
			acc.Owner.ToBase58(),
			len(acc.Data))
	}
	return nil
}

func runTransfer(s *cancel.Scope, svcCtx *svc.ServiceContext, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	to := fs.String("to", "", "recipient address")
	amount := fs.String("amount", "", "amount in SOL, e.g. 0.01")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if svcCtx.Payer == nil {
		return errNoPayer
	}

	recipient, err := types.TryPubkeyFromBase58(*to)
	if err != nil {
		return err
	}
	lamports, err := tokenops.ToBaseUnits(*amount, tokenops.SolDecimals)
	if err != nil {
		return err
	}

	t := tokenops.SendTask("transfer", tokenops.TransferSol(svcCtx.Payer, recipient, lamports), svcCtx.Submitter, svcCtx.ConfirmOptions())
	res, err := runObserved(s, t)
	if err != nil {
		return err
	}
	fmt.Printf("signature=%s slot=%d status=%s\n", res.Signature, res.Slot, res.ConfirmationStatus)
	return nil
}

func runCreateMint(s *cancel.Scope, svcCtx *svc.ServiceContext, args []string) error {
	fs := flag.NewFlagSet("create-mint", flag.ContinueOnError)
	decimals := fs.Uint("decimals", 9, "mint decimals")
	amount := fs.String("amount", "0", "initial supply in UI units")
	owner := fs.String("owner", "", "owner of the initial token account, defaults to payer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if svcCtx.Payer == nil {
		return errNoPayer
	}
	if *decimals > 255 {
		return fmt.Errorf("decimals %d out of range", *decimals)
	}

	var ownerKey common.PublicKey
	if *owner != "" {
		key, err := types.TryPubkeyFromBase58(*owner)
		if err != nil {
			return err
		}
		ownerKey = key
	}
	baseAmount, err := tokenops.ToBaseUnits(*amount, uint8(*decimals))
	if err != nil {
		return err
	}

	mint := txbuilder.NewKeypairSigner(sdktypes.NewAccount())
	b, err := tokenops.CreateMint(s.Context(), svcCtx.RpcClient, tokenops.CreateMintParams{
		Payer:    svcCtx.Payer,
		Mint:     mint,
		Owner:    ownerKey,
		Decimals: uint8(*decimals),
		Amount:   baseAmount,
	})
	if err != nil {
		return err
	}

	res, err := runObserved(s, tokenops.SendTask("create-mint", b, svcCtx.Submitter, svcCtx.ConfirmOptions()))
	if err != nil {
		return err
	}
	fmt.Printf("signature=%s mint=%s token_account=%s\n",
		res.Signature, res.Context.Mint.ToBase58(), res.Context.TokenAccount.ToBase58())
	return nil
}

func runMetadata(s *cancel.Scope, svcCtx *svc.ServiceContext, args []string) error {
	fs := flag.NewFlagSet("metadata", flag.ContinueOnError)
	mints := fs.String("mints", "", "comma separated mint addresses or aliases (usdc, wsol, ...)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	names := splitList(*mints)
	for i, name := range names {
		names[i] = consts.ResolveMint(name)
	}
	keys, err := types.PubkeysFromBase58(names)
	if err != nil {
		return err
	}

	infos, err := tokenops.FetchMints(s.Context(), svcCtx.Accounts, keys, svcCtx.FetchOptions()...)
	if err != nil {
		return err
	}
	mds, err := tokenops.FetchMetadata(s.Context(), svcCtx.Accounts, keys, svcCtx.FetchOptions()...)
	if err != nil {
		return err
	}

	for i, md := range mds {
		if !infos[i].Exists {
			fmt.Printf("%s\t<absent>\n", md.Mint.ToBase58())
			continue
		}
		name, symbol := "-", "-"
		if md.Exists {
			name, symbol = md.Name, md.Symbol
		}
		fmt.Printf("%s\t%s\t%s\tdecimals=%d\tsupply=%s\n",
			md.Mint.ToBase58(), name, symbol, infos[i].Decimals, infos[i].UISupply().String())
	}
	return nil
}

// runObserved 运行任务并把状态变化写日志
func runObserved[T any](s *cancel.Scope, t *task.Task[T]) (T, error) {
	t.OnStatusChange(func(st task.Status) {
		logger.Infof("[main] task=%s status=%s", t.Name(), st)
	})
	return t.Run(s.Context())
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
