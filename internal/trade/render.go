package trade

import (
	"fmt"
	"sort"
	"strings"

	"SolSwap-Bot/internal/aggregator"
	"SolSwap-Bot/internal/custody"
	xerrors "SolSwap-Bot/internal/errors"
	"SolSwap-Bot/internal/solana"
)

// 本文件集中维护所有面向用户的回复文案。业务错误在这里按错误码映射为
// 可读的提示语，内部细节不外泄。

const (
	msgStartFirst = "You don't have a wallet yet. Send /start to create one."

	msgSwapUsage = "Usage: /swap <token_address> <amount_in_sol>\n" +
		"Example: /swap EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v 0.1\n" +
		"Or just send the token address you want to buy."

	msgInvalidAddress = "That doesn't look like a valid Solana token address. " +
		"Please check it and try again."

	msgInvalidAmount = "Please send a positive amount of SOL, for example 0.1."

	msgCustodyFailure = "We couldn't reach your wallet right now. " +
		"Please try again in a moment."

	msgSlippage = "The price moved too much while executing your swap. " +
		"Try a smaller amount or try again later."

	msgGenericFailure = "Something went wrong while processing your swap. " +
		"Please try again."

	msgNoTokens = "No tokens found."

	msgNoSessionHint = "I didn't understand that. Send /help to see what I can do."

	msgHelp = "Here's what I can do:\n" +
		"/start - create your wallet\n" +
		"/wallet - show your deposit address\n" +
		"/balance - show your token balances\n" +
		"/swap <token_address> <amount_in_sol> - swap SOL for a token\n" +
		"/help - show this message"
)

func renderWelcome(address string, created bool) string {
	if created {
		return fmt.Sprintf("Welcome! Your new Solana wallet is ready.\n\n"+
			"Deposit address:\n%s\n\n"+
			"Send some SOL to it, then use /swap to buy tokens.", address)
	}
	return fmt.Sprintf("Welcome back! Your wallet address:\n%s", address)
}

func renderWalletAddress(address string) string {
	return fmt.Sprintf("Your deposit address:\n%s", address)
}

func renderBalances(balances map[string]aggregator.Balance, registry *Registry) string {
	type entry struct {
		label  string
		amount float64
	}
	entries := make([]entry, 0, len(balances))
	for key, balance := range balances {
		if balance.UIAmount <= 0 {
			continue
		}
		label := key
		if solana.IsValidAddress(key) {
			label = registry.Symbol(key)
		}
		entries = append(entries, entry{label: label, amount: balance.UIAmount})
	}
	if len(entries) == 0 {
		return msgNoTokens
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].label < entries[j].label
	})

	var builder strings.Builder
	builder.WriteString("Your balances:\n")
	for _, e := range entries {
		fmt.Fprintf(&builder, "%s: %s\n", e.label, solana.FormatAmount(e.amount))
	}
	return strings.TrimRight(builder.String(), "\n")
}

func renderInsufficientBalance(actual float64, requested string) string {
	return fmt.Sprintf("Insufficient balance: you have %s SOL but tried to swap %s SOL. "+
		"Deposit more SOL and try again.", solana.FormatAmount(actual), requested)
}

func renderAskAmount(symbol string) string {
	return fmt.Sprintf("How much SOL do you want to swap for %s? Send the amount, for example 0.1.", symbol)
}

func renderSwapSuccess(signature string, outAmount float64, symbol string) string {
	return fmt.Sprintf("Swap executed! You received %s %s.\n\nView on explorer:\n%s",
		solana.FormatAmount(outAmount), symbol, solana.ExplorerTxURL(signature))
}

// renderError 将内部错误映射为面向用户的提示语。
func renderError(err error) string {
	switch xerrors.CodeOf(err) {
	case solana.CodeInvalidAddress:
		return msgInvalidAddress
	case custody.CodeCustodyFailure:
		return msgCustodyFailure
	case aggregator.CodeSlippageExceeded:
		return msgSlippage
	case aggregator.CodeVendorError:
		if e, ok := xerrors.From(err); ok {
			if vendor := e.Meta("vendor_error"); vendor != "" {
				return fmt.Sprintf("The swap failed: %s\nPlease try again.", vendor)
			}
		}
		return msgGenericFailure
	default:
		// 注册为 UserFacing 的错误码，其描述即可直接展示给用户。
		code := xerrors.CodeOf(err)
		if attr := xerrors.AttributesOf(code); attr.UserFacing && attr.Message != "" {
			return fmt.Sprintf("The swap failed: %s. Please try again.", attr.Message)
		}
		return msgGenericFailure
	}
}
