package signals

import (
	"io"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/cpu"
	mpb "github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/bcdannyboy/mispricer/models"
)

const jobBatchSize = 256

// Result is the model price of the quote at Index, or the error that
// prevented pricing it.
type Result struct {
	Index int
	Price float64
	Err   error
}

// Pricer fans quotes out to a fixed pool of workers. Results are placed by
// quote index, so output order never depends on completion order.
type Pricer struct {
	Workers  int
	Progress io.Writer // nil disables the progress bar
}

func NewPricer(progress io.Writer) *Pricer {
	return &Pricer{Workers: defaultWorkers(), Progress: progress}
}

func defaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

type job struct {
	index int
	quote models.Quote
}

func priceQuote(index int, q models.Quote, model models.PricingModel, mctx models.MarketContext, optionType models.OptionType) Result {
	price, err := model.Price(mctx.Spot, q.Strike, mctx.TimeToExpiry, q.ImpliedVolatility, optionType)
	return Result{Index: index, Price: price, Err: err}
}

// PriceAll returns one Result per quote, in input order.
func (p *Pricer) PriceAll(quotes []models.Quote, model models.PricingModel, mctx models.MarketContext, optionType models.OptionType) []Result {
	results := make([]Result, len(quotes))
	if len(quotes) == 0 {
		return results
	}

	numWorkers := p.Workers
	if numWorkers < 1 {
		numWorkers = defaultWorkers()
	}
	if numWorkers > len(quotes) {
		numWorkers = len(quotes)
	}

	var progress *mpb.Progress
	var bar *mpb.Bar
	if p.Progress != nil {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(p.Progress))
		bar = progress.AddBar(int64(len(quotes)),
			mpb.PrependDecorators(
				decor.Name(model.Name()),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
			),
		)
	}

	jobs := make(chan job, jobBatchSize)
	out := make(chan Result, jobBatchSize)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(jobs, out, &wg, model, mctx, optionType, bar)
	}

	go func() {
		for i, q := range quotes {
			jobs <- job{index: i, quote: q}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	for r := range out {
		results[r.Index] = r
	}

	if progress != nil {
		progress.Wait()
	}
	return results
}

func worker(jobs <-chan job, out chan<- Result, wg *sync.WaitGroup, model models.PricingModel, mctx models.MarketContext, optionType models.OptionType, bar *mpb.Bar) {
	defer wg.Done()
	for j := range jobs {
		out <- priceQuote(j.index, j.quote, model, mctx, optionType)
		if bar != nil {
			bar.Increment()
		}
	}
}
