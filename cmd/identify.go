package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"localcosmos/keyctl/internal/db"
	"localcosmos/keyctl/internal/natureguide"
)

var (
	identifySteps   []string
	identifyJSON    bool
	identifyVerify  bool
	identifyMode    string
	identifyAll     bool
	identifyDescend bool
)

// stepAction is one parsed --step argument.
type stepAction int

const (
	actionSelect stepAction = iota
	actionNumber
	actionDeselect
)

// step selects, deselects or enters a number into a space referenced by
// index or by identifier.
type step struct {
	action stepAction
	index  int
	id     string
	value  float64
}

// parseStep reads "N" (select), "N=V" (enter V into a range space) and
// "~N" (deselect). N is a space index or a space identifier.
func parseStep(s string) (step, error) {
	s = strings.TrimSpace(s)
	var st step
	switch {
	case strings.HasPrefix(s, "~"):
		st.action = actionDeselect
		s = s[1:]
	case strings.Contains(s, "="):
		ref, val, _ := strings.Cut(s, "=")
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return step{}, fmt.Errorf("invalid value in step %q: %w", s, err)
		}
		st.action = actionNumber
		st.value = v
		s = ref
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return step{}, fmt.Errorf("empty space reference")
	}
	if i, err := strconv.Atoi(s); err == nil {
		if i < 0 {
			return step{}, fmt.Errorf("negative space index %d", i)
		}
		st.index = i
	} else {
		st.index = -1
		st.id = s
	}
	return st, nil
}

func (st step) resolve(k *natureguide.IdentificationKey) (int, error) {
	if st.id == "" {
		if k.Space(st.index) == nil {
			return 0, fmt.Errorf("space index %d out of range (key has %d spaces)", st.index, len(k.Spaces()))
		}
		return st.index, nil
	}
	s := k.SpaceByID(st.id)
	if s == nil {
		return 0, fmt.Errorf("unknown space %q", st.id)
	}
	return s.Index, nil
}

// apply runs st against k and reports whether any state changed.
func (st step) apply(k *natureguide.IdentificationKey) (bool, error) {
	i, err := st.resolve(k)
	if err != nil {
		return false, err
	}
	switch st.action {
	case actionNumber:
		return k.SelectNumber(i, st.value), nil
	case actionDeselect:
		return k.DeselectSpace(i), nil
	default:
		return k.SelectSpace(i), nil
	}
}

// loadedKey is a freshly materialised key together with its guide and row.
type loadedKey struct {
	guide *natureguide.NatureGuide
	key   *natureguide.IdentificationKey
	row   *db.Key
}

// loadKey resolves ref and materialises a fresh identification key for it.
func loadKey(d *db.DB, ref string, opts ...natureguide.Option) (*loadedKey, error) {
	row, err := ResolveKey(d, ref)
	if err != nil {
		return nil, err
	}
	guide, err := db.NewGuideCache(d).Get(row.GuideUUID)
	if err != nil {
		return nil, fmt.Errorf("loading guide %s: %w", row.GuideUUID, err)
	}
	opts = append([]natureguide.Option{natureguide.WithLogger(logger)}, opts...)
	key, err := guide.GetIdentificationKey(row.UUID, opts...)
	if err != nil {
		return nil, err
	}
	return &loadedKey{guide: guide, key: key, row: row}, nil
}

// descend enters the sub-key behind the single remaining result, or behind
// the leader when several results remain.
func (lk *loadedKey) descend(opts ...natureguide.Option) error {
	target := lk.key.Leader()
	if results := lk.key.Results(); len(results) == 1 {
		target = results[0]
	}
	if target == nil {
		return fmt.Errorf("no result to descend into")
	}
	opts = append([]natureguide.Option{natureguide.WithLogger(logger)}, opts...)
	sub, err := lk.guide.Descend(target, opts...)
	if err != nil {
		return err
	}
	logger.Info("descended", "from", lk.key.UUID, "to", sub.UUID)
	lk.key = sub
	return nil
}

type resultView struct {
	UUID      string  `json:"uuid"`
	Name      string  `json:"name"`
	NodeType  string  `json:"node_type"`
	Points    int     `json:"points"`
	MaxPoints int     `json:"max_points"`
	Score     float64 `json:"score"`
}

type identifyReport struct {
	Key               string       `json:"key"`
	Name              string       `json:"name"`
	Mode              string       `json:"mode"`
	Done              bool         `json:"done"`
	Leader            string       `json:"leader,omitempty"`
	Selected          []string     `json:"selected"`
	HiddenFilters     []string     `json:"hidden_filters"`
	Results           []resultView `json:"results"`
	ImpossibleResults []resultView `json:"impossible_results,omitempty"`
	Verified          bool         `json:"verified,omitempty"`
}

var identifyCmd = &cobra.Command{
	Use:   "identify <key>",
	Short: "Apply a sequence of selections to a key and print the ranked results",
	Long: `Apply a sequence of selections to a key and print the ranked results.

Each --step is one of:
  N      select space N
  N=V    enter value V into the range space N
  ~N     deselect space N
where N is a space index (see "keyctl inspect") or a space identifier.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := make([]step, 0, len(identifySteps))
		for _, raw := range identifySteps {
			st, err := parseStep(raw)
			if err != nil {
				return err
			}
			steps = append(steps, st)
		}

		var opts []natureguide.Option
		mode := identifyMode
		if mode == "" && cfg != nil {
			mode = cfg.IdentificationMode
		}
		if mode != "" {
			m := natureguide.IdentificationMode(mode)
			if m != natureguide.ModeFluid && m != natureguide.ModeStrict {
				return fmt.Errorf("invalid --mode %q (want fluid or strict)", mode)
			}
			opts = append(opts, natureguide.WithMode(m))
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		lk, err := loadKey(d, args[0], opts...)
		if err != nil {
			return err
		}
		key := lk.key

		for i, st := range steps {
			changed, err := st.apply(key)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, identifySteps[i], err)
			}
			if !changed {
				logger.Info("step had no effect", "step", identifySteps[i])
			}
			if identifyVerify {
				if err := key.Verify(); err != nil {
					return fmt.Errorf("step %d (%s): %w", i+1, identifySteps[i], err)
				}
			}
		}

		if identifyDescend {
			if err := lk.descend(opts...); err != nil {
				return err
			}
			key = lk.key
		}

		report := buildIdentifyReport(key, identifyVerify)
		if wantJSON(identifyJSON) {
			return printJSON(report)
		}
		printIdentify(report)
		return nil
	},
}

func init() {
	identifyCmd.Flags().StringArrayVar(&identifySteps, "step", nil, "Selection step: N, N=V or ~N (repeatable)")
	identifyCmd.Flags().BoolVar(&identifyJSON, "json", false, "Output as JSON")
	identifyCmd.Flags().BoolVar(&identifyVerify, "verify", false, "Check the incremental state against a full recompute after every step")
	identifyCmd.Flags().StringVar(&identifyMode, "mode", "", "Override identification mode: fluid or strict")
	identifyCmd.Flags().BoolVar(&identifyAll, "all", false, "Also list impossible results")
	identifyCmd.Flags().BoolVar(&identifyDescend, "descend", false, "Enter the sub-key behind the top result after the steps")
	rootCmd.AddCommand(identifyCmd)
}

func buildIdentifyReport(k *natureguide.IdentificationKey, verified bool) *identifyReport {
	r := &identifyReport{
		Key:           k.UUID,
		Name:          k.Name,
		Mode:          string(k.Mode()),
		Done:          k.IsDone(),
		Selected:      []string{},
		HiddenFilters: []string{},
		Results:       views(k.Results()),
		Verified:      verified,
	}
	if leader := k.Leader(); leader != nil {
		r.Leader = leader.UUID
	}
	for _, s := range k.Spaces() {
		if s.IsSelected() {
			r.Selected = append(r.Selected, s.Identifier)
		}
	}
	for _, f := range k.Filters() {
		if !f.IsVisible() {
			r.HiddenFilters = append(r.HiddenFilters, f.UUID)
		}
	}
	if identifyAll {
		r.ImpossibleResults = views(k.ImpossibleResults())
	}
	return r
}

func views(nodes []*natureguide.Node) []resultView {
	out := make([]resultView, len(nodes))
	for i, n := range nodes {
		out[i] = resultView{
			UUID:      n.UUID,
			Name:      n.Name,
			NodeType:  string(n.NodeType),
			Points:    n.Points(),
			MaxPoints: n.MaxPoints,
			Score:     n.Score(),
		}
	}
	return out
}

func printIdentify(r *identifyReport) {
	fmt.Printf("\n  %s  (%s, %s mode)\n", r.Name, truncID(r.Key), r.Mode)
	fmt.Println("  ────────────────────────────────────────")
	if len(r.Selected) > 0 {
		fmt.Printf("  Selected: %s\n", strings.Join(r.Selected, ", "))
	}
	if len(r.HiddenFilters) > 0 {
		fmt.Printf("  Hidden filters: %d\n", len(r.HiddenFilters))
	}
	if r.Done {
		fmt.Println("  Identification done.")
	}

	fmt.Printf("\n  %d possible results:\n", len(r.Results))
	printViews(r.Results, r.Leader)
	if len(r.ImpossibleResults) > 0 {
		fmt.Printf("\n  %d impossible results:\n", len(r.ImpossibleResults))
		printViews(r.ImpossibleResults, "")
	}
	if r.Verified {
		fmt.Println("\n  verified against full recompute")
	}
	fmt.Println()
}

func printViews(vs []resultView, leader string) {
	for _, v := range vs {
		marker := " "
		if v.UUID == leader {
			marker = ">"
		}
		kind := ""
		if v.NodeType == string(natureguide.NodeTypeNode) {
			kind = " [key]"
		}
		fmt.Printf("  %s %s %3.0f%% (%d/%d)  %s%s\n",
			marker, truncID(v.UUID), v.Score*100, v.Points, v.MaxPoints, truncTitle(v.Name, 40), kind)
	}
}
