package hub

import "sync"

// roomEntry 是单个房间的实时成员集合。
type roomEntry struct {
	members map[string]*Client // connID -> Client
}

// Registry 维护房间到当前连接成员的映射，是唯一被并发
// 处理器共享的可变结构，所有读写都在锁内完成。
//
// 条目在首次加入时创建，成员清空时删除。它不持久化，
// 也不是房间业务成员关系的权威 (那在数据库里)，只回答
// "此刻谁应该收到这个房间的广播"。
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*roomEntry
	byConn map[string]map[string]struct{} // connID -> 已加入的房间集合

	// 每个房间一把发送锁，持久化+广播持锁执行，
	// 保证同房间广播顺序与提交顺序一致。锁与成员条目
	// 生命周期无关，发送者不要求是房间成员。
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewRegistry 创建空的 Registry。
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*roomEntry),
		byConn: make(map[string]map[string]struct{}),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Join 把连接加入房间的成员集合，重复加入无额外效果。
// 返回是否为新增成员。
func (r *Registry) Join(roomID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[roomID]
	if !ok {
		entry = &roomEntry{members: make(map[string]*Client)}
		r.rooms[roomID] = entry
	}
	if _, exists := entry.members[c.id]; exists {
		return false
	}
	entry.members[c.id] = c

	joined, ok := r.byConn[c.id]
	if !ok {
		joined = make(map[string]struct{})
		r.byConn[c.id] = joined
	}
	joined[roomID] = struct{}{}
	return true
}

// Leave 把连接移出房间的成员集合，非成员时无效果。
// 成员清空后删除房间条目。
func (r *Registry) Leave(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(roomID, connID)
}

// LeaveAll 把连接移出它加入过的全部房间。断开连接时调用，
// 必须无条件执行且只执行一次。
func (r *Registry) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.byConn[connID] {
		r.removeLocked(roomID, connID)
	}
	delete(r.byConn, connID)
}

func (r *Registry) removeLocked(roomID, connID string) {
	entry, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(entry.members, connID)
	if len(entry.members) == 0 {
		delete(r.rooms, roomID)
	}
	if joined, ok := r.byConn[connID]; ok {
		delete(joined, roomID)
	}
}

// MembersOf 返回房间当前成员的快照，调用方可安全遍历。
func (r *Registry) MembersOf(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]*Client, 0, len(entry.members))
	for _, c := range entry.members {
		members = append(members, c)
	}
	return members
}

// RoomsOf 返回连接当前加入的房间 ID 快照。
func (r *Registry) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.byConn[connID]))
	for roomID := range r.byConn[connID] {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// RoomLock 返回房间的发送锁，不存在时创建。
func (r *Registry) RoomLock(roomID string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	lock, ok := r.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[roomID] = lock
	}
	return lock
}
