package bot

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Command
	}{
		{"start", "/start", Command{Kind: KindStart, Raw: "/start"}},
		{"help", "/help", Command{Kind: KindHelp, Raw: "/help"}},
		{"wallet", "/wallet", Command{Kind: KindWallet, Raw: "/wallet"}},
		{"getwallet alias", "/getwallet", Command{Kind: KindWallet, Raw: "/getwallet"}},
		{"balance", "/balance", Command{Kind: KindBalance, Raw: "/balance"}},
		{"bare swap", "/swap", Command{Kind: KindSwap, Args: []string{}, Raw: "/swap"}},
		{
			"swap with args",
			"/swap EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v 0.1",
			Command{
				Kind: KindSwap,
				Args: []string{"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "0.1"},
				Raw:  "/swap EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v 0.1",
			},
		},
		{
			"buy alias",
			"/buy mint 0.5",
			Command{Kind: KindSwap, Args: []string{"mint", "0.5"}, Raw: "/buy mint 0.5"},
		},
		{"mention suffix", "/balance@SolSwapBot", Command{Kind: KindBalance, Raw: "/balance@SolSwapBot"}},
		{"case insensitive", "/START", Command{Kind: KindStart, Raw: "/START"}},
		{"unknown", "/teleport", Command{Kind: KindUnknown, Raw: "/teleport"}},
		{"free text", "some token address", Command{Kind: KindText, Raw: "some token address"}},
		{"whitespace trimmed", "  /start  ", Command{Kind: KindStart, Raw: "/start"}},
		{"empty", "", Command{Kind: KindText, Raw: ""}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.text, got, tc.want)
			}
		})
	}
}
