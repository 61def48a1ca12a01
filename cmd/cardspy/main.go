// Command cardspy connects to a PC/SC reader, identifies the inserted
// card and prints everything it can learn about it: ATR analysis, the
// ranked list of matching card handlers, and the top handler's
// interrogation report.
//
// With -atr, no reader is needed: the given hex ATR is parsed and
// classified offline (detection is then limited to ATR patterns).
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/ebfe/scard"
	log "github.com/sirupsen/logrus"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/handler"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
	"github.com/tomkp/card-spy-sub001/pkg/iso7816"
)

func main() {
	atrHex := flag.String("atr", "", "analyze a hex ATR offline instead of connecting to a reader")
	readerIndex := flag.Int("reader", 0, "index of the PC/SC reader to use")
	flag.Parse()

	if *atrHex != "" {
		runOffline(*atrHex)
		return
	}

	runLive(*readerIndex)
}

// runOffline parses and classifies an ATR without a card present.
func runOffline(atrHex string) {
	card := atr.ParseHex(atrHex)
	if card == nil {
		log.Fatalf("not a valid hex ATR: %q", atrHex)
	}

	printATR(card)

	results := handler.NewDefaultRegistry().Detect(card, nil)
	printDetections(results)
}

// runLive connects to a reader and runs the full identification flow.
func runLive(readerIndex int) {
	ctx, scCard, reader := connectToCard(readerIndex)

	defer func() {
		if err := ctx.Release(); err != nil {
			log.Warnf("failed to release context: %v", err)
		}
	}()
	defer func() {
		if err := scCard.Disconnect(scard.LeaveCard); err != nil {
			log.Warnf("failed to disconnect card: %v", err)
		}
	}()

	fmt.Printf(">> Using reader: %s\n", reader)

	status, err := scCard.Status()
	if err != nil {
		log.Fatalf("failed to read card status: %v", err)
	}

	card := atr.Parse(status.Atr)
	printATR(card)

	client := iso7816.NewClient(scCard)
	registry := handler.NewDefaultRegistry()

	results := registry.Detect(card, client)
	printDetections(results)
	if len(results) == 0 {
		return
	}

	top := results[0]
	if err := registry.Activate(top.Handler.Name()); err != nil {
		log.Fatalf("activation failed: %v", err)
	}

	report, err := registry.Interrogate(client)
	if err != nil {
		log.Fatalf("interrogation failed: %v", err)
	}
	printReport(report)
}

// connectToCard establishes the PC/SC context and connects to the chosen
// reader. T=0 and T=1 are both offered so the card picks its protocol.
func connectToCard(readerIndex int) (*scard.Context, *scard.Card, string) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		log.Fatalf("error establishing context: %v", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		releaseQuietly(ctx)
		log.Fatal("no smart card reader found")
	}
	if readerIndex < 0 || readerIndex >= len(readers) {
		releaseQuietly(ctx)
		log.Fatalf("reader index %d out of range: %d readers available", readerIndex, len(readers))
	}

	card, err := ctx.Connect(readers[readerIndex], scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		releaseQuietly(ctx)
		log.Fatalf("error connecting to card: %v", err)
	}

	return ctx, card, readers[readerIndex]
}

func releaseQuietly(ctx *scard.Context) {
	if err := ctx.Release(); err != nil {
		log.Warnf("failed to release context: %v", err)
	}
}

func printATR(card *atr.ATR) {
	fmt.Println("\n=============================================")
	fmt.Println(" ATR Analysis")
	fmt.Println("=============================================")
	fmt.Printf("Raw:        %s\n", hexutil.Format(card.Raw))
	fmt.Printf("Convention: %s\n", card.Convention)
	if len(card.Protocols) > 0 {
		fmt.Printf("Protocols:  %s\n", strings.Join(card.Protocols, ", "))
	}
	if len(card.HistoricalBytes) > 0 {
		fmt.Printf("Historical: %s (%q)\n", hexutil.Format(card.HistoricalBytes), card.HistoricalASCII)
	}
	for _, hint := range card.Hints {
		fmt.Printf("Hint:       %s\n", hint)
	}
}

func printDetections(results []handler.Detected) {
	fmt.Println("\n=============================================")
	fmt.Println(" Handler Detection")
	fmt.Println("=============================================")

	if len(results) == 0 {
		fmt.Println("No handler recognized this card.")
		return
	}

	for i, res := range results {
		fmt.Printf("%d. %-10s %3d%%  %s\n", i+1, res.Handler.Name(), res.Result.Confidence, res.Result.CardType)
		for key, value := range res.Result.Metadata {
			fmt.Printf("   %s: %s\n", key, value)
		}
	}
}

func printReport(report *handler.Report) {
	fmt.Println("\n=============================================")
	fmt.Printf(" Interrogation: %s\n", report.CardType)
	fmt.Println("=============================================")

	for _, app := range report.Applications {
		fmt.Printf("Application: %s", hexutil.Format(app.AID))
		if app.Label != "" {
			fmt.Printf("  (%s)", app.Label)
		}
		fmt.Println()
	}
	for key, value := range report.Fields {
		fmt.Printf("%-20s %s\n", key+":", value)
	}
}
