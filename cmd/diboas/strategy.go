package main

import (
	"errors"
	"fmt"

	"github.com/diboas/diboas-go/internal/chain"
	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/fees"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/search"
	"github.com/diboas/diboas-go/internal/tui"
	"github.com/diboas/diboas-go/internal/validation"
	"github.com/diboas/diboas-go/internal/wizard"
	"github.com/spf13/cobra"
)

func strategyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Create and manage yield strategies",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Launch a new yield strategy through the guided wizard",
		Long: `Launch a new yield strategy.

The wizard walks through naming, investment, goal, timeline, strategy
search and a final review. An interrupted wizard resumes where it left
off the next time you run this command.`,
		RunE: runStrategyStart,
	}
	start.Flags().Bool("quick", false, "use the shorter quick flow (skips name and timeline)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List your strategies",
		RunE:  runStrategyList,
	}

	stop := &cobra.Command{
		Use:   "stop <strategy-id>",
		Short: "Stop a running strategy and release its funds",
		Args:  cobra.ExactArgs(1),
		RunE:  runStrategyStop,
	}

	cmd.AddCommand(start, list, stop)
	return cmd
}

func runStrategyStart(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	quick, _ := cmd.Flags().GetBool("quick")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	gateway := chain.NewGateway()
	w, err := wizard.NewWizard(wizard.Deps{
		Storage:   store,
		Validator: validation.NewValidator(store),
		Fees:      fees.NewCalculator(),
		Searcher:  search.NewSearcher(),
		Executor:  gateway,
	})
	if err != nil {
		return fmt.Errorf("failed to build wizard: %w", err)
	}

	flowVariant := wizard.FullFlow()
	if quick {
		flowVariant = wizard.QuickFlow()
	}

	// Pick up an interrupted session before starting fresh.
	err = w.Resume(ctx, currentUser(), flowVariant.Kind)
	if errors.Is(err, common.ErrNotFound) {
		err = w.Start(ctx, currentUser(), flowVariant)
	}
	if err != nil {
		return fmt.Errorf("failed to open wizard session: %w", err)
	}

	return tui.Run(ctx, w)
}

func runStrategyList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	strategies, err := store.GetStrategiesByUser(ctx, currentUser())
	if err != nil {
		return fmt.Errorf("failed to load strategies: %w", err)
	}

	if len(strategies) == 0 {
		fmt.Println("No strategies yet. Start one with: diboas strategy start")
		return nil
	}

	fmt.Println(cli.FormatTitle("Your strategies"))
	for i := range strategies {
		fmt.Println(cli.RenderStrategyRow(&strategies[i]))
	}
	return nil
}

func runStrategyStop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	strategyID := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	strategy, err := store.GetStrategy(ctx, strategyID)
	if err != nil {
		_ = store.Close()
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("strategy %s not found", strategyID)
		}
		return fmt.Errorf("failed to load strategy: %w", err)
	}
	if strategy.Status != model.StrategyRunning {
		_ = store.Close()
		return fmt.Errorf("strategy %s is %s, only running strategies can be stopped", strategyID, strategy.Status)
	}
	_ = store.Close()

	descriptor := model.TransactionDescriptor{
		Type:          model.TypeStopStrategy,
		Amount:        strategy.CurrentValue,
		Asset:         "USDC",
		Chain:         strategy.Chain,
		PaymentMethod: model.MethodDiBoaSWallet,
		StrategyID:    strategy.ID,
	}

	if err := executeFlow(ctx, descriptor); err != nil {
		return err
	}

	// The flow released the funds; now retire the position itself.
	store, err = initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to reopen storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.UpdateStrategyStatus(ctx, strategy.ID, model.StrategyStopped); err != nil {
		return fmt.Errorf("failed to mark strategy stopped: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Strategy %s stopped, funds returned to available balance", strategy.Name)))
	return nil
}
