package vec

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Используется как ключ блока в мире, поэтому сравнивается по значению.
type Vec3 struct {
	X int
	Y int
	Z int
}

// Column возвращает ключ колонны (X, Z), в которой лежит позиция
func (v Vec3) Column() Vec2 {
	return Vec2{X: v.X, Y: v.Z}
}

// Chunk возвращает ключ чанка для позиции
func (v Vec3) Chunk(chunkSize int) Vec2 {
	return Vec2{X: FloorDiv(v.X, chunkSize), Y: FloorDiv(v.Z, chunkSize)}
}

// DistanceTo возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return float64(dx*dx + dy*dy + dz*dz)
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Less задаёт полный порядок позиций: X, затем Y, затем Z
func (v Vec3) Less(other Vec3) bool {
	if v.X != other.X {
		return v.X < other.X
	}
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	return v.Z < other.Z
}
