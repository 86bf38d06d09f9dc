// Package views contains the bubbletea views.
package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/openmeet/favsync/internal/catalog"
	"github.com/openmeet/favsync/internal/counts"
	"github.com/openmeet/favsync/internal/favorites"
	"github.com/openmeet/favsync/internal/reconcile"
)

// Catalog is the slice of the group catalog the view needs.
type Catalog interface {
	Groups(ctx context.Context, ids []string) ([]catalog.Group, error)
}

// cardState tracks one group card's presentation state. It never feeds
// back into the favorite cache: un-favoriting happens in the cache
// first, the card only decides how long to keep showing.
type cardState struct {
	group   catalog.Group
	pending bool // un-favorited, lingering until the grace window runs out
	fading  bool // grace elapsed, fade transition in progress
	removed bool // gone for the rest of this view's lifetime
	gen     int  // timer generation; messages from stale timers are dropped
}

// Messages.
type (
	// changedMsg says the favorite set may have changed; re-read it.
	changedMsg struct{}

	// groupsLoadedMsg delivers catalog records for favorited groups.
	groupsLoadedMsg struct{ groups []catalog.Group }

	// graceElapsedMsg fires when a pending card's grace window ends.
	graceElapsedMsg struct {
		id  string
		gen int
	}

	// fadeElapsedMsg fires when a fading card's transition ends.
	fadeElapsedMsg struct {
		id  string
		gen int
	}

	// syncDoneMsg reports the outcome of a reconciliation attempt.
	syncDoneMsg struct{ err error }
)

// FavoritesView renders the favorited groups with live counts and the
// fade-out-then-remove behavior for cards that lose their favorite
// status while on screen.
type FavoritesView struct {
	cache      *favorites.Cache
	catalog    Catalog
	listener   *counts.Listener
	reconciler *reconcile.Reconciler
	logger     *log.Logger

	graceDelay time.Duration
	fadeDelay  time.Duration

	// signals funnels notifier callbacks and count updates into the
	// bubbletea loop. Buffered by one: coalescing bursts is fine
	// because the handler re-reads the cache anyway.
	signals     chan struct{}
	unsubscribe func()

	order  []string
	cards  map[string]*cardState
	cursor int
	width  int
	height int
	status string
}

// Config carries the view's tunables.
type Config struct {
	GraceDelay time.Duration
	FadeDelay  time.Duration
}

// DefaultConfig returns delays long enough for the fade to read as
// intentional rather than a glitch.
func DefaultConfig() Config {
	return Config{
		GraceDelay: time.Second,
		FadeDelay:  300 * time.Millisecond,
	}
}

// NewFavoritesView wires the view to its collaborators. The view
// subscribes to the change notifier and the push channel; Teardown
// releases both.
func NewFavoritesView(cache *favorites.Cache, cat Catalog, channel counts.Subscriber, reconciler *reconcile.Reconciler, cfg Config, logger *log.Logger) *FavoritesView {
	if cfg.GraceDelay <= 0 {
		cfg.GraceDelay = DefaultConfig().GraceDelay
	}
	if cfg.FadeDelay <= 0 {
		cfg.FadeDelay = DefaultConfig().FadeDelay
	}
	if logger == nil {
		logger = log.Default()
	}

	v := &FavoritesView{
		cache:      cache,
		catalog:    cat,
		reconciler: reconciler,
		logger:     logger,
		graceDelay: cfg.GraceDelay,
		fadeDelay:  cfg.FadeDelay,
		signals:    make(chan struct{}, 1),
		cards:      make(map[string]*cardState),
	}

	v.listener = counts.NewListener(channel, logger, counts.WithUpdateHook(v.signal))
	v.unsubscribe = cache.Notifier().Subscribe(v.signal)

	return v
}

// signal nudges the bubbletea loop without blocking the caller.
func (v *FavoritesView) signal() {
	select {
	case v.signals <- struct{}{}:
	default:
	}
}

// Teardown releases the notifier subscription and the push channel
// handler. Must run when the view goes away.
func (v *FavoritesView) Teardown() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
	v.listener.Close()
}

// Init loads the catalog records and kicks off reconciliation.
func (v *FavoritesView) Init() tea.Cmd {
	return tea.Batch(v.loadGroups(v.cache.All()), v.waitForSignal(), v.triggerSync())
}

// waitForSignal parks on the signal funnel and re-arms after delivery.
func (v *FavoritesView) waitForSignal() tea.Cmd {
	return func() tea.Msg {
		<-v.signals
		return changedMsg{}
	}
}

// loadGroups fetches display records; catalog failure degrades to no
// groups rather than an error screen.
func (v *FavoritesView) loadGroups(ids []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		groups, err := v.catalog.Groups(ctx, ids)
		if err != nil {
			v.logger.Warn("group catalog unavailable", "err", err)
			return groupsLoadedMsg{}
		}
		return groupsLoadedMsg{groups: groups}
	}
}

// triggerSync runs the reconciler once; concurrent triggers collapse
// inside the reconciler itself.
func (v *FavoritesView) triggerSync() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return syncDoneMsg{err: v.reconciler.Trigger(ctx)}
	}
}

// Update handles bubbletea messages.
func (v *FavoritesView) Update(msg tea.Msg) (*FavoritesView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)

	case changedMsg:
		cmds := v.refreshMembership()
		cmds = append(cmds, v.waitForSignal())
		return v, tea.Batch(cmds...)

	case groupsLoadedMsg:
		v.mergeGroups(msg.groups)
		return v, nil

	case graceElapsedMsg:
		return v, v.handleGraceElapsed(msg)

	case fadeElapsedMsg:
		return v, v.handleFadeElapsed(msg)

	case syncDoneMsg:
		if msg.err != nil {
			v.status = "could not sync"
		} else {
			v.status = ""
		}
		return v, nil
	}

	return v, nil
}

func (v *FavoritesView) handleKey(msg tea.KeyMsg) (*FavoritesView, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		v.Teardown()
		return v, tea.Quit

	case "j", "down":
		return v, v.moveCursor(1)

	case "k", "up":
		return v, v.moveCursor(-1)

	case "f", " ":
		if id, ok := v.hoveredID(); ok {
			v.cache.Toggle(id)
		}
		return v, nil

	case "y":
		if id, ok := v.hoveredID(); ok {
			if card := v.cards[id]; card != nil && card.group.Slug != "" {
				if err := clipboard.WriteAll(card.group.Slug); err == nil {
					v.status = "yanked " + card.group.Slug
				}
			}
		}
		return v, nil

	case "r":
		v.status = "syncing..."
		return v, v.triggerSync()
	}

	return v, nil
}

// moveCursor shifts the cursor and restarts the grace timer of any
// pending card the cursor just left.
func (v *FavoritesView) moveCursor(delta int) tea.Cmd {
	visible := v.visibleIDs()
	if len(visible) == 0 {
		return nil
	}

	prev := v.cursor
	v.cursor += delta
	if v.cursor < 0 {
		v.cursor = 0
	}
	if v.cursor >= len(visible) {
		v.cursor = len(visible) - 1
	}
	if v.cursor == prev || prev >= len(visible) {
		return nil
	}

	left := v.cards[visible[prev]]
	if left != nil && left.pending && !left.fading {
		return v.startGrace(visible[prev], left)
	}
	return nil
}

// startGrace arms (or re-arms) a card's removal timer. Bumping the
// generation invalidates any timer already in flight.
func (v *FavoritesView) startGrace(id string, card *cardState) tea.Cmd {
	card.gen++
	gen := card.gen
	return tea.Tick(v.graceDelay, func(time.Time) tea.Msg {
		return graceElapsedMsg{id: id, gen: gen}
	})
}

// refreshMembership re-reads the cache after a change signal and
// reconciles every card's presentation state with it.
func (v *FavoritesView) refreshMembership() []tea.Cmd {
	var cmds []tea.Cmd

	current := make(map[string]struct{})
	var unknown []string
	for _, id := range v.cache.All() {
		current[id] = struct{}{}
		if _, ok := v.cards[id]; !ok {
			unknown = append(unknown, id)
		}
	}

	for _, id := range v.order {
		card := v.cards[id]
		if card.removed {
			continue
		}

		_, fav := current[id]
		switch {
		case !fav && !card.pending:
			card.pending = true
			if !v.isHovered(id) {
				cmds = append(cmds, v.startGrace(id, card))
			}
			// While hovered, no timer runs; moveCursor arms it on leave.

		case fav && (card.pending || card.fading):
			// Re-favorited before removal: the card stays.
			card.pending = false
			card.fading = false
			card.gen++
		}
	}

	// Favorites added elsewhere (another process, the reconciler) get
	// their display records fetched lazily.
	if len(unknown) > 0 {
		cmds = append(cmds, v.loadGroups(unknown))
	}

	return cmds
}

func (v *FavoritesView) handleGraceElapsed(msg graceElapsedMsg) tea.Cmd {
	card := v.cards[msg.id]
	if card == nil || card.gen != msg.gen || !card.pending || card.fading || card.removed {
		return nil
	}
	if v.isHovered(msg.id) {
		// The cursor came back during the grace window; the timer
		// re-arms when it leaves again.
		return nil
	}

	card.fading = true
	card.gen++
	gen := card.gen
	id := msg.id
	return tea.Tick(v.fadeDelay, func(time.Time) tea.Msg {
		return fadeElapsedMsg{id: id, gen: gen}
	})
}

func (v *FavoritesView) handleFadeElapsed(msg fadeElapsedMsg) tea.Cmd {
	card := v.cards[msg.id]
	if card == nil || card.gen != msg.gen || !card.fading || card.removed {
		return nil
	}

	card.removed = true
	card.fading = false
	card.pending = false

	visible := v.visibleIDs()
	if v.cursor >= len(visible) && len(visible) > 0 {
		v.cursor = len(visible) - 1
	}

	// The removal shifts the cards under the cursor, which can silently
	// move it off a pending card without moveCursor running. Any pending
	// card the cursor is no longer on needs its grace timer (re)armed or
	// it would linger dimmed until the cursor passes over it again.
	var cmds []tea.Cmd
	for _, id := range visible {
		c := v.cards[id]
		if c.pending && !c.fading && !v.isHovered(id) {
			cmds = append(cmds, v.startGrace(id, c))
		}
	}
	return tea.Batch(cmds...)
}

// mergeGroups installs catalog records, keeping existing card state.
func (v *FavoritesView) mergeGroups(groups []catalog.Group) {
	for _, g := range groups {
		if card, ok := v.cards[g.ID]; ok {
			card.group = g
			continue
		}
		v.cards[g.ID] = &cardState{group: g}
		v.order = append(v.order, g.ID)
	}
}

// visibleIDs returns the IDs still rendered, in display order.
func (v *FavoritesView) visibleIDs() []string {
	out := make([]string, 0, len(v.order))
	for _, id := range v.order {
		if !v.cards[id].removed {
			out = append(out, id)
		}
	}
	return out
}

// hoveredID returns the group the cursor is resting on.
func (v *FavoritesView) hoveredID() (string, bool) {
	visible := v.visibleIDs()
	if v.cursor < 0 || v.cursor >= len(visible) {
		return "", false
	}
	return visible[v.cursor], true
}

func (v *FavoritesView) isHovered(id string) bool {
	hovered, ok := v.hoveredID()
	return ok && hovered == id
}

// count returns the displayed count: the latest broadcast override if
// one arrived this session, else the count fetched with the record.
func (v *FavoritesView) count(id string) int {
	if n, ok := v.listener.Get(id); ok {
		return n
	}
	return v.cards[id].group.FavoriteCount
}

// View renders the card list.
func (v *FavoritesView) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	statusStyle := lipgloss.NewStyle().Faint(true).Padding(0, 1)
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	hoveredStyle := cardStyle.BorderForeground(lipgloss.Color("212"))
	pendingStyle := cardStyle.Faint(true)
	fadingStyle := cardStyle.Faint(true).Foreground(lipgloss.Color("240"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Favorite groups"))
	if v.status != "" {
		b.WriteString(statusStyle.Render(v.status))
	}
	b.WriteString("\n")

	visible := v.visibleIDs()
	if len(visible) == 0 {
		b.WriteString(statusStyle.Render("no favorites yet. press f on a group to favorite it"))
		b.WriteString("\n")
		return b.String()
	}

	for i, id := range visible {
		card := v.cards[id]
		style := cardStyle
		switch {
		case card.fading:
			style = fadingStyle
		case card.pending:
			style = pendingStyle
		case i == v.cursor:
			style = hoveredStyle
		}

		name := card.group.Name
		if name == "" {
			name = id
		}
		line := fmt.Sprintf("%s  ★ %d", name, v.count(id))
		if card.group.Description != "" {
			line += "\n" + card.group.Description
		}
		if len(card.group.Tags) > 0 {
			line += "\n" + strings.Join(card.group.Tags, " · ")
		}

		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	help := statusStyle.Render("j/k move · f toggle · y yank · r sync · q quit")
	b.WriteString(help)
	b.WriteString("\n")

	return b.String()
}
