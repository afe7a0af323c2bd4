package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dajeum/internal/ledger"
)

// queryFunc reads one view of the ledger state. It returns the JSON payload
// and the text fields.
type queryFunc func(st *ledger.State) (any, []Field, error)

// NewQueryCommand creates the query command and its read-only subcommands.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read the ledgers",
		Long: `Read the ledger state rebuilt from the log. Queries never sequence an
operation and never initialize a log.

Exit codes:
  0 - Found
  1 - NOT_FOUND
  2 - Command error`,
	}

	cmd.AddCommand(
		newQuerySub(rootOpts, "name <id>", "Show a name record and its certificates", 1, queryName),
		newQuerySub(rootOpts, "certificate <id>", "Show a certificate", 1, queryCertificate),
		newQuerySub(rootOpts, "balance <address>", "Show an account balance", 1, queryBalance),
		newQuerySub(rootOpts, "allowance <owner> <spender>", "Show a delegated allowance", 2, queryAllowance),
		newQuerySub(rootOpts, "service <name>", "Show a service price", 1, queryService),
		newQuerySub(rootOpts, "services", "List priced services", 0, queryServices),
		newQuerySub(rootOpts, "token", "Show token metadata and supply", 0, queryToken),
		newQuerySub(rootOpts, "snapshot", "Show the state summary", 0, querySnapshot),
	)
	return cmd
}

func newQuerySub(rootOpts *RootOptions, use, short string, nargs int, build func(args []string) (queryFunc, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := build(args)
			if err != nil {
				return err
			}
			return runQuery(rootOpts, q, cmd)
		},
	}
}

func runQuery(opts *RootOptions, q queryFunc, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, eng, err := openLedger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	var (
		data   any
		fields []Field
	)
	err = eng.View(func(s *ledger.State) error {
		var err error
		data, fields, err = q(s)
		return err
	})
	out := opts.formatter(cmd)
	if err != nil {
		return out.LedgerError(err)
	}
	return out.Result(data, fields...)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be an integer", arg))
	}
	return id, nil
}

type nameView struct {
	ledger.NameRecord
	Certificates []int64 `json:"certificates"`
}

func queryName(args []string) (queryFunc, error) {
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return func(st *ledger.State) (any, []Field, error) {
		rec, err := st.Names.Get(id)
		if err != nil {
			return nil, nil, err
		}
		certs := st.Certificates.ByName(id)
		ids := make([]int64, len(certs))
		for i, c := range certs {
			ids[i] = c.ID
		}
		return nameView{NameRecord: rec, Certificates: ids}, []Field{
			{"ID", rec.ID},
			{"Full name", rec.FullName},
			{"Birth date", fmt.Sprintf("%04d-%02d-%02d", rec.BirthYear, rec.BirthMonth, rec.BirthDay)},
			{"Gender", rec.Gender},
			{"Owner", rec.Owner},
			{"Certificates", joinIDs(ids)},
		}, nil
	}, nil
}

func queryCertificate(args []string) (queryFunc, error) {
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return func(st *ledger.State) (any, []Field, error) {
		cert, err := st.Certificates.Get(id)
		if err != nil {
			return nil, nil, err
		}
		return cert, []Field{
			{"ID", cert.ID},
			{"Name ID", cert.NameID},
			{"Owner", cert.Owner},
			{"Token URI", cert.TokenURI},
			{"Image URI", cert.ImageURI},
		}, nil
	}, nil
}

type balanceView struct {
	Address   ledger.Address `json:"address"`
	Balance   int64          `json:"balance"`
	Formatted string         `json:"formatted"`
}

func queryBalance(args []string) (queryFunc, error) {
	addr := ledger.Address(args[0])
	return func(st *ledger.State) (any, []Field, error) {
		bal := st.Tokens.BalanceOf(addr)
		v := balanceView{Address: addr, Balance: bal, Formatted: st.Tokens.Format(bal)}
		return v, []Field{{"Address", addr}, {"Balance", v.Formatted}}, nil
	}, nil
}

type allowanceView struct {
	Owner     ledger.Address `json:"owner"`
	Spender   ledger.Address `json:"spender"`
	Allowance int64          `json:"allowance"`
	Formatted string         `json:"formatted"`
}

func queryAllowance(args []string) (queryFunc, error) {
	owner, spender := ledger.Address(args[0]), ledger.Address(args[1])
	return func(st *ledger.State) (any, []Field, error) {
		amount := st.Tokens.Allowance(owner, spender)
		v := allowanceView{Owner: owner, Spender: spender, Allowance: amount, Formatted: st.Tokens.Format(amount)}
		return v, []Field{{"Owner", owner}, {"Spender", spender}, {"Allowance", v.Formatted}}, nil
	}, nil
}

type serviceView struct {
	ServiceName string `json:"service_name"`
	Price       int64  `json:"price"`
	Formatted   string `json:"formatted"`
}

func queryService(args []string) (queryFunc, error) {
	name := args[0]
	return func(st *ledger.State) (any, []Field, error) {
		price, err := st.Tokens.ServicePrice(name)
		if err != nil {
			return nil, nil, err
		}
		v := serviceView{ServiceName: name, Price: price, Formatted: st.Tokens.Format(price)}
		return v, []Field{{"Service", name}, {"Price", v.Formatted}}, nil
	}, nil
}

func queryServices([]string) (queryFunc, error) {
	return func(st *ledger.State) (any, []Field, error) {
		names := st.Tokens.Services()
		views := make([]serviceView, len(names))
		fields := make([]Field, len(names))
		for i, name := range names {
			price, err := st.Tokens.ServicePrice(name)
			if err != nil {
				return nil, nil, err
			}
			views[i] = serviceView{ServiceName: name, Price: price, Formatted: st.Tokens.Format(price)}
			fields[i] = Field{name, views[i].Formatted}
		}
		return views, fields, nil
	}, nil
}

type tokenView struct {
	Symbol      string         `json:"symbol"`
	Decimals    int32          `json:"decimals"`
	TotalSupply int64          `json:"total_supply"`
	Treasury    ledger.Address `json:"treasury"`
	Admin       ledger.Address `json:"admin"`
}

func queryToken([]string) (queryFunc, error) {
	return func(st *ledger.State) (any, []Field, error) {
		t := st.Tokens
		v := tokenView{
			Symbol:      t.Symbol(),
			Decimals:    t.Decimals(),
			TotalSupply: t.TotalSupply(),
			Treasury:    t.Treasury(),
			Admin:       t.Admin(),
		}
		return v, []Field{
			{"Symbol", v.Symbol},
			{"Decimals", v.Decimals},
			{"Total supply", t.Format(v.TotalSupply)},
			{"Treasury", v.Treasury},
			{"Admin", v.Admin},
		}, nil
	}, nil
}

func querySnapshot([]string) (queryFunc, error) {
	return func(st *ledger.State) (any, []Field, error) {
		snap := st.Snapshot()
		return snap, []Field{
			{"Names", snap.Names},
			{"Next name ID", snap.NextNameID},
			{"Certificates", snap.Certificates},
			{"Next certificate ID", snap.NextCertificateID},
			{"Total supply", st.Tokens.Format(snap.TotalSupply)},
			{"Accounts", len(snap.Balances)},
			{"Services", len(snap.Prices)},
		}, nil
	}, nil
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
