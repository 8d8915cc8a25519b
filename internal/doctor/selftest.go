package doctor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"lagrace/internal/domain"
	"lagrace/internal/speech/stt"
)

// SamplePhrases are classified by the self-test.
var SamplePhrases = []string{
	"quel est le stock de mosquito ?",
	"ventes d'aujourd'hui",
	"qui nous doit de l'argent ?",
	"bonjour comment ça va ?",
}

type Speaker interface {
	Speak(text string, priority bool)
	WaitUntilDone(ctx context.Context) error
}

type Classifier interface {
	Recognize(raw string) domain.Intent
}

type TextHandler interface {
	HandleText(ctx context.Context, text string) string
}

type Database interface {
	SalesToday(ctx context.Context) (domain.SalesTotals, error)
	LowStockProducts(ctx context.Context, threshold float64) ([]domain.Product, error)
}

// lowStockThreshold matches the quantity under which stock replies warn.
const lowStockThreshold = 10

// SelfTest exercises each subsystem once without wake-word gating. Nil
// collaborators are reported as unavailable.
type SelfTest struct {
	Speaker    Speaker
	Classifier Classifier
	Dialogue   TextHandler
	Database   Database
	Recognizer stt.Recognizer
	Out        io.Writer
}

func (t SelfTest) Run(ctx context.Context) Report {
	step := color.New(color.FgCyan)
	var report Report

	step.Fprintln(t.Out, "[1/4] speech output")
	report = append(report, t.speech(ctx))

	step.Fprintln(t.Out, "[2/4] intent recognition")
	report = append(report, t.intents(ctx))

	step.Fprintln(t.Out, "[3/4] database")
	report = append(report, t.database(ctx))

	step.Fprintln(t.Out, "[4/4] speech recognition")
	report = append(report, t.recognition(ctx))

	report.Write(t.Out)
	return report
}

func (t SelfTest) speech(ctx context.Context) Result {
	res := Result{Name: "speech output"}
	if t.Speaker == nil {
		res.Detail = "unavailable"
		return res
	}
	t.Speaker.Speak("Test de la synthèse vocale. LaGrace est prête.", false)
	wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := t.Speaker.WaitUntilDone(wctx); err != nil {
		res.Detail = err.Error()
		return res
	}
	res.OK = true
	res.Detail = "test phrase spoken"
	return res
}

func (t SelfTest) intents(ctx context.Context) Result {
	res := Result{Name: "intent recognition", Required: true}
	if t.Classifier == nil {
		res.Detail = "unavailable"
		return res
	}
	understood := 0
	for _, phrase := range SamplePhrases {
		in := t.Classifier.Recognize(phrase)
		fmt.Fprintf(t.Out, "   %q -> %s (%.2f)\n", phrase, in.Name, in.Confidence)
		if in.Name != domain.IntentUnknown {
			understood++
		}
		if t.Dialogue != nil {
			fmt.Fprintf(t.Out, "      %s\n", t.Dialogue.HandleText(ctx, phrase))
		}
	}
	res.OK = understood == len(SamplePhrases)
	res.Detail = fmt.Sprintf("%d/%d sample phrases understood", understood, len(SamplePhrases))
	return res
}

func (t SelfTest) database(ctx context.Context) Result {
	res := Result{Name: "database"}
	if t.Database == nil {
		res.Detail = "unavailable"
		return res
	}
	totals, err := t.Database.SalesToday(ctx)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	low, err := t.Database.LowStockProducts(ctx, lowStockThreshold)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	for _, p := range low {
		fmt.Fprintf(t.Out, "   low stock: %s (%.0f)\n", p.DisplayName(), p.Quantity)
	}
	res.OK = true
	res.Detail = fmt.Sprintf("sales today: %d, %.0f CDF, %.2f USD; %d products low on stock",
		totals.Count, totals.TotalCDF, totals.TotalUSD, len(low))
	return res
}

func (t SelfTest) recognition(ctx context.Context) Result {
	res := Result{Name: "speech recognition"}
	if t.Recognizer == nil {
		res.Detail = "unavailable"
		return res
	}
	if err := t.Recognizer.Start(ctx, func(stt.Result) {}); err != nil {
		res.Detail = err.Error()
		return res
	}
	t.Recognizer.Stop()
	res.OK = true
	res.Detail = "microphone opened and released"
	return res
}
