package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/plenert/ledger"
	"github.com/plenert/ledger/ledger/shell"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	holderName     string
	accountType    string
	initialDeposit string
	interestRate   float64
	applyInterest  bool
	newPIN         string
	assumeYes      bool
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create",
	Args:  cobra.NoArgs,
	Short: "Open a new account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := checkLoaded(cmd); err != nil {
			return err
		}
		pin, err := readPIN(cmd, "Set 4-digit PIN: ")
		if err != nil {
			return err
		}
		deposit := decimal.Zero
		if initialDeposit != "" {
			if deposit, err = shell.ParseAmount(initialDeposit, cfg.CurrencySymbol); err != nil {
				return err
			}
		}

		number, err := directory.CreateAccount(holderName, pin, deposit, accountType)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Account created: %s\n", number)
		return nil
	},
}

// depositCmd represents the deposit command
var depositCmd = &cobra.Command{
	Use:   "deposit <account> <amount>",
	Args:  cobra.ExactArgs(2),
	Short: "Deposit money into an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], func(acc *ledger.Account) (string, error) {
			amount, err := amountArg(args[1])
			if err != nil {
				return "", err
			}
			if err := acc.Deposit(amount); err != nil {
				return "", err
			}
			return fmt.Sprintf("Deposited %s. New balance: %s", money(amount), money(acc.Balance)), nil
		})
	},
}

// withdrawCmd represents the withdraw command
var withdrawCmd = &cobra.Command{
	Use:   "withdraw <account> <amount>",
	Args:  cobra.ExactArgs(2),
	Short: "Withdraw money from an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], func(acc *ledger.Account) (string, error) {
			amount, err := amountArg(args[1])
			if err != nil {
				return "", err
			}
			if err := acc.Withdraw(amount); err != nil {
				return "", err
			}
			return fmt.Sprintf("Withdrew %s. New balance: %s", money(amount), money(acc.Balance)), nil
		})
	},
}

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:     "balance <account>",
	Aliases: []string{"bal", "show"},
	Args:    cobra.ExactArgs(1),
	Short:   "Show account details and balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := authenticate(cmd, args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Account Number: %s\n", acc.Number)
		fmt.Fprintf(w, "Account Holder: %s\n", acc.Holder)
		fmt.Fprintf(w, "Account Type: %s\n", acc.Type)
		fmt.Fprintf(w, "Account Created: %s (%s ago)\n", acc.Created.Format(ledger.TimeLayout), shell.Age(acc.Created, time.Now()))
		fmt.Fprintf(w, "Total Transactions: %d\n", len(acc.Transactions))
		fmt.Fprintf(w, "Current Balance: %s\n", money(acc.Balance))
		return nil
	},
}

// interestCmd represents the interest command
var interestCmd = &cobra.Command{
	Use:   "interest <account>",
	Args:  cobra.ExactArgs(1),
	Short: "Calculate interest, and credit it with --apply",
	RunE: func(cmd *cobra.Command, args []string) error {
		rate := cfg.InterestRate
		if cmd.Flags().Changed("rate") {
			rate = interestRate
		}
		if err := ledger.ValidRate(rate); err != nil {
			return err
		}
		if !applyInterest {
			acc, err := authenticate(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Calculated Interest: %s\n", money(acc.CalculateInterest(rate)))
			return nil
		}
		return mutate(cmd, args[0], func(acc *ledger.Account) (string, error) {
			credited, err := acc.AddInterest(rate)
			if err != nil {
				return "", err
			}
			if credited.IsZero() {
				return "No interest to add.", nil
			}
			return fmt.Sprintf("Interest of %s added. New balance: %s", money(credited), money(acc.Balance)), nil
		})
	},
}

// pinCmd represents the pin command
var pinCmd = &cobra.Command{
	Use:   "pin <account>",
	Args:  cobra.ExactArgs(1),
	Short: "Change the PIN of an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], func(acc *ledger.Account) (string, error) {
			next := newPIN
			if next == "" {
				var err error
				if next, err = askNewPIN(cmd); err != nil {
					return "", err
				}
			}
			if err := acc.UpdatePIN(next); err != nil {
				return "", err
			}
			return "PIN updated successfully", nil
		})
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <account>",
	Args:  cobra.ExactArgs(1),
	Short: "Close an account and remove its history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkLoaded(cmd); err != nil {
			return err
		}
		if !assumeYes {
			confirm, err := readLine(cmd, "Type 'DELETE' to confirm account deletion: ")
			if err != nil {
				return err
			}
			if confirm != "DELETE" {
				fmt.Fprintln(cmd.OutOrStdout(), "Account deletion cancelled")
				return nil
			}
		}
		pin, err := readPIN(cmd, "PIN: ")
		if err != nil {
			return err
		}
		if err := directory.DeleteAccount(args[0], pin); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Account %s deleted\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd, depositCmd, withdrawCmd, balanceCmd, interestCmd, pinCmd, deleteCmd)

	createCmd.Flags().StringVarP(&holderName, "name", "n", "", "Account holder name.")
	createCmd.Flags().StringVarP(&accountType, "type", "t", ledger.DefaultAccountType, "Account type, e.g. Savings or Current.")
	createCmd.Flags().StringVarP(&initialDeposit, "deposit", "d", "", "Initial deposit amount.")
	_ = createCmd.MarkFlagRequired("name")

	interestCmd.Flags().Float64VarP(&interestRate, "rate", "r", ledger.DefaultInterestRate, "Interest rate in percent (default from config).")
	interestCmd.Flags().BoolVar(&applyInterest, "apply", false, "Credit the interest to the account.")

	pinCmd.Flags().StringVar(&newPIN, "new", "", "New 4-digit PIN (prompted for when omitted).")

	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation.")
}

// mutate authenticates the account, applies fn and saves the ledger. The
// message returned by fn is printed once the change is saved.
func mutate(cmd *cobra.Command, number string, fn func(*ledger.Account) (string, error)) error {
	acc, err := authenticate(cmd, number)
	if err != nil {
		return err
	}
	msg, err := fn(acc)
	if err != nil {
		return err
	}
	if err := directory.Save(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func amountArg(arg string) (decimal.Decimal, error) {
	amount, err := shell.ParseAmount(arg, cfg.CurrencySymbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}
	return amount, nil
}

func askNewPIN(cmd *cobra.Command) (string, error) {
	first, err := askSecret(cmd, "Enter new 4-digit PIN: ")
	if err != nil {
		return "", err
	}
	second, err := askSecret(cmd, "Confirm new PIN: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("PINs don't match")
	}
	return first, nil
}
