package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rushteam/bookrec/core"
)

const defaultKeyPrefix = "bookrec"

// BookStoreAdapter 在 core.Store 上铺一层图书数据集的 key 布局，
// 同时实现 core 层全部仓储读接口与画像更新进程需要的写方法。
//
// key 布局（{p} 为 KeyPrefix）：
//
//	{p}:book:{isbn}              书目属性（JSON Book）
//	{p}:genre:{genre}            类型倒排（JSON []string，ISBN 升序）
//	{p}:ratings:user:{userID}    用户评分 map[isbn]rating
//	{p}:ratings:book:{isbn}      书目评分 map[userID]rating
//	{p}:users / {p}:books        有交互的用户/书目列表（升序）
//	{p}:metrics:{isbn}           派生指标（JSON ItemMetrics）
//	{p}:profile:{userID}         行为画像（JSON UserProfile）
//	{p}:attrs:{userID}           人口学属性（JSON UserAttributes）
//	{p}:cohort:{age}:{gender}    同龄群倒排（JSON []string）
//	{p}:log:book:{isbn}          交互明细（JSON []Interaction，ItemSeq 升序）
//	{p}:log:maxseq               书目时钟域当前最大序号
//
// 读侧可以并发；写侧是 read-modify-write，默认单个更新进程持有写权，
// 不做跨进程并发控制。
type BookStoreAdapter struct {
	store core.Store

	// KeyPrefix 是存储 key 的前缀
	KeyPrefix string
}

var (
	_ core.RatingStore    = (*BookStoreAdapter)(nil)
	_ core.CatalogStore   = (*BookStoreAdapter)(nil)
	_ core.MetricsStore   = (*BookStoreAdapter)(nil)
	_ core.UserStore      = (*BookStoreAdapter)(nil)
	_ core.InteractionLog = (*BookStoreAdapter)(nil)
)

// NewBookStoreAdapter 创建一个基于 core.Store 的图书数据集适配器。
func NewBookStoreAdapter(s core.Store, keyPrefix string) *BookStoreAdapter {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &BookStoreAdapter{store: s, KeyPrefix: keyPrefix}
}

// ---- RatingStore ----

func (a *BookStoreAdapter) GetUserRatings(ctx context.Context, userID string) (map[string]float64, error) {
	ratings := make(map[string]float64)
	if _, err := a.getJSON(ctx, a.userRatingsKey(userID), &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (a *BookStoreAdapter) GetItemRatings(ctx context.Context, isbn string) (map[string]float64, error) {
	ratings := make(map[string]float64)
	if _, err := a.getJSON(ctx, a.bookRatingsKey(isbn), &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (a *BookStoreAdapter) GetAllUsers(ctx context.Context) ([]string, error) {
	return a.getList(ctx, a.KeyPrefix+":users")
}

func (a *BookStoreAdapter) GetAllItems(ctx context.Context) ([]string, error) {
	return a.getList(ctx, a.KeyPrefix+":books")
}

// ---- CatalogStore ----

func (a *BookStoreAdapter) GetBook(ctx context.Context, isbn string) (*core.Book, error) {
	var book core.Book
	found, err := a.getJSON(ctx, a.bookKey(isbn), &book)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.NewNotFoundError(core.ModuleStore, fmt.Sprintf("book %s not found", isbn))
	}
	return &book, nil
}

func (a *BookStoreAdapter) GetBooksByGenre(ctx context.Context, genre string, limit int) ([]string, error) {
	isbns, err := a.getList(ctx, a.genreKey(genre))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(isbns) > limit {
		isbns = isbns[:limit]
	}
	return isbns, nil
}

// ---- MetricsStore ----

func (a *BookStoreAdapter) GetItemMetrics(ctx context.Context, isbn string) (*core.ItemMetrics, error) {
	var m core.ItemMetrics
	found, err := a.getJSON(ctx, a.metricsKey(isbn), &m)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.NewNotFoundError(core.ModuleStore, fmt.Sprintf("metrics for %s not found", isbn))
	}
	return &m, nil
}

func (a *BookStoreAdapter) GetUserProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	var p core.UserProfile
	found, err := a.getJSON(ctx, a.profileKey(userID), &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.NewNotFoundError(core.ModuleStore, fmt.Sprintf("profile for %s not found", userID))
	}
	return &p, nil
}

// ---- UserStore ----

func (a *BookStoreAdapter) GetUserAttributes(ctx context.Context, userID string) (*core.UserAttributes, error) {
	var attrs core.UserAttributes
	found, err := a.getJSON(ctx, a.attrsKey(userID), &attrs)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.NewNotFoundError(core.ModuleStore, fmt.Sprintf("user %s not found", userID))
	}
	return &attrs, nil
}

func (a *BookStoreAdapter) GetUsersByCohort(ctx context.Context, ageBracket, gender string) ([]string, error) {
	return a.getList(ctx, a.cohortKey(ageBracket, gender))
}

func (a *BookStoreAdapter) GetRatedUsers(ctx context.Context) ([]string, error) {
	return a.getList(ctx, a.KeyPrefix+":users")
}

// ---- InteractionLog ----

func (a *BookStoreAdapter) GetItemInteractions(ctx context.Context, isbn string) ([]core.Interaction, error) {
	var log []core.Interaction
	if _, err := a.getJSON(ctx, a.logKey(isbn), &log); err != nil {
		return nil, err
	}
	return log, nil
}

// RecentInteractions 通过 BatchGet 拉取全部书目日志后按窗口过滤，
// 结果按 ItemSeq 升序（同序号按 ISBN、UserID 升序）。
func (a *BookStoreAdapter) RecentInteractions(ctx context.Context, sinceSeq int64) ([]core.Interaction, error) {
	isbns, err := a.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	if len(isbns) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(isbns))
	for _, isbn := range isbns {
		keys = append(keys, a.logKey(isbn))
	}
	values, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	var recent []core.Interaction
	for _, key := range keys {
		data, ok := values[key]
		if !ok {
			continue
		}
		var log []core.Interaction
		if err := json.Unmarshal(data, &log); err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", key, err)
		}
		for _, in := range log {
			if in.ItemSeq >= sinceSeq {
				recent = append(recent, in)
			}
		}
	}

	sort.Slice(recent, func(i, j int) bool {
		if recent[i].ItemSeq != recent[j].ItemSeq {
			return recent[i].ItemSeq < recent[j].ItemSeq
		}
		if recent[i].ISBN != recent[j].ISBN {
			return recent[i].ISBN < recent[j].ISBN
		}
		return recent[i].UserID < recent[j].UserID
	})
	return recent, nil
}

func (a *BookStoreAdapter) MaxItemSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	if _, err := a.getJSON(ctx, a.maxSeqKey(), &maxSeq); err != nil {
		return 0, err
	}
	return maxSeq, nil
}

// ---- 写方法（画像更新进程专用） ----

// PutBook 写入书目属性并维护类型倒排。
func (a *BookStoreAdapter) PutBook(ctx context.Context, book *core.Book) error {
	if book == nil || book.ISBN == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: book without ISBN")
	}
	if err := a.setJSON(ctx, a.bookKey(book.ISBN), book); err != nil {
		return err
	}
	for _, genre := range book.Genres {
		if err := a.addToList(ctx, a.genreKey(genre), book.ISBN); err != nil {
			return err
		}
	}
	return nil
}

// PutUserAttributes 写入人口学属性并维护同龄群倒排。
func (a *BookStoreAdapter) PutUserAttributes(ctx context.Context, attrs *core.UserAttributes) error {
	if attrs == nil || attrs.UserID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: attributes without user id")
	}
	if err := a.setJSON(ctx, a.attrsKey(attrs.UserID), attrs); err != nil {
		return err
	}
	return a.addToList(ctx, a.cohortKey(attrs.AgeBracket, attrs.Gender), attrs.UserID)
}

// PutItemMetrics 覆盖写入书目派生指标。
func (a *BookStoreAdapter) PutItemMetrics(ctx context.Context, m *core.ItemMetrics) error {
	if m == nil || m.ISBN == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: metrics without ISBN")
	}
	return a.setJSON(ctx, a.metricsKey(m.ISBN), m)
}

// PutUserProfile 覆盖写入用户行为画像。
func (a *BookStoreAdapter) PutUserProfile(ctx context.Context, p *core.UserProfile) error {
	if p == nil || p.UserID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: profile without user id")
	}
	return a.setJSON(ctx, a.profileKey(p.UserID), p)
}

// UpsertInteraction 写入一条交互。同一 (UserID, ISBN) 已有记录时视为
// 更新：覆盖评分与类别、保留原序号，并返回更新前的记录；否则按传入
// 序号追加。评分矩阵、用户/书目列表、最大序号随之同步。
func (a *BookStoreAdapter) UpsertInteraction(ctx context.Context, in core.Interaction) (*core.Interaction, error) {
	if in.UserID == "" || in.ISBN == "" {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: interaction without user or ISBN")
	}

	log, err := a.GetItemInteractions(ctx, in.ISBN)
	if err != nil {
		return nil, err
	}
	var prev *core.Interaction
	for i := range log {
		if log[i].UserID == in.UserID {
			p := log[i]
			prev = &p
			in.UserSeq = p.UserSeq
			in.ItemSeq = p.ItemSeq
			log[i] = in
			break
		}
	}
	if prev == nil {
		log = append(log, in)
	}
	if err := a.setJSON(ctx, a.logKey(in.ISBN), log); err != nil {
		return nil, err
	}

	userRatings, err := a.GetUserRatings(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	userRatings[in.ISBN] = in.Rating
	if err := a.setJSON(ctx, a.userRatingsKey(in.UserID), userRatings); err != nil {
		return nil, err
	}

	bookRatings, err := a.GetItemRatings(ctx, in.ISBN)
	if err != nil {
		return nil, err
	}
	bookRatings[in.UserID] = in.Rating
	if err := a.setJSON(ctx, a.bookRatingsKey(in.ISBN), bookRatings); err != nil {
		return nil, err
	}

	if err := a.addToList(ctx, a.KeyPrefix+":users", in.UserID); err != nil {
		return nil, err
	}
	if err := a.addToList(ctx, a.KeyPrefix+":books", in.ISBN); err != nil {
		return nil, err
	}

	maxSeq, err := a.MaxItemSeq(ctx)
	if err != nil {
		return nil, err
	}
	if in.ItemSeq > maxSeq {
		if err := a.setJSON(ctx, a.maxSeqKey(), in.ItemSeq); err != nil {
			return nil, err
		}
	}
	return prev, nil
}

// ---- key 布局与编解码 ----

func (a *BookStoreAdapter) bookKey(isbn string) string   { return a.KeyPrefix + ":book:" + isbn }
func (a *BookStoreAdapter) genreKey(genre string) string { return a.KeyPrefix + ":genre:" + genre }
func (a *BookStoreAdapter) userRatingsKey(userID string) string {
	return a.KeyPrefix + ":ratings:user:" + userID
}
func (a *BookStoreAdapter) bookRatingsKey(isbn string) string {
	return a.KeyPrefix + ":ratings:book:" + isbn
}
func (a *BookStoreAdapter) metricsKey(isbn string) string { return a.KeyPrefix + ":metrics:" + isbn }
func (a *BookStoreAdapter) profileKey(userID string) string {
	return a.KeyPrefix + ":profile:" + userID
}
func (a *BookStoreAdapter) attrsKey(userID string) string { return a.KeyPrefix + ":attrs:" + userID }
func (a *BookStoreAdapter) logKey(isbn string) string     { return a.KeyPrefix + ":log:book:" + isbn }
func (a *BookStoreAdapter) maxSeqKey() string             { return a.KeyPrefix + ":log:maxseq" }

func (a *BookStoreAdapter) cohortKey(ageBracket, gender string) string {
	return a.KeyPrefix + ":cohort:" + ageBracket + ":" + gender
}

// getJSON 读取并解码一个 key。key 不存在返回 (false, nil)。
func (a *BookStoreAdapter) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

func (a *BookStoreAdapter) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return a.store.Set(ctx, key, data)
}

func (a *BookStoreAdapter) getList(ctx context.Context, key string) ([]string, error) {
	var list []string
	if _, err := a.getJSON(ctx, key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// addToList 把成员插入升序列表，已存在时不重复。
func (a *BookStoreAdapter) addToList(ctx context.Context, key, member string) error {
	list, err := a.getList(ctx, key)
	if err != nil {
		return err
	}
	i := sort.SearchStrings(list, member)
	if i < len(list) && list[i] == member {
		return nil
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = member
	return a.setJSON(ctx, key, list)
}
