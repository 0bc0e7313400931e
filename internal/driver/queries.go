package driver

// Names of the Lucene full-text indexes backing keyword search.
const (
	NodeFulltextIndex = "node_text"
	EdgeFulltextIndex = "fact_text"
)

const (
	NodeFulltextIndexQuery = `
		CREATE FULLTEXT INDEX node_text IF NOT EXISTS
		FOR (n:Paper|Entity|Concept) ON EACH [n.name, n.summary]
	`

	EdgeFulltextIndexQuery = `
		CREATE FULLTEXT INDEX fact_text IF NOT EXISTS
		FOR ()-[r:RELATES_TO]-() ON EACH [r.fact]
	`

	SavePaperNodeQuery = `
		MERGE (p:Paper {uuid: $uuid})
		SET p.name = $name,
			p.authors = $authors,
			p.journal = $journal,
			p.year = $year,
			p.summary = $summary,
			p.content = $content,
			p.created_at = $created_at,
			p.valid_at = $valid_at
		RETURN p.uuid AS uuid
	`

	SaveEntityNodeQuery = `
		MERGE (e:Entity {name: $name})
		ON CREATE SET e.uuid = $uuid,
			e.created_at = $created_at
		SET e.type = CASE WHEN $type <> '' THEN $type ELSE e.type END,
			e.summary = CASE WHEN $summary <> '' THEN $summary ELSE e.summary END,
			e.name_embedding = CASE WHEN $name_embedding IS NULL THEN e.name_embedding ELSE $name_embedding END
		RETURN e.uuid AS uuid
	`

	SaveConceptNodeQuery = `
		MERGE (c:Concept {cui: $cui})
		ON CREATE SET c.uuid = $uuid,
			c.created_at = $created_at
		SET c.name = $name,
			c.summary = $summary,
			c.semantic_types = $semantic_types,
			c.source = $source
		RETURN c.uuid AS uuid
	`

	SaveMentionEdgeQuery = `
		MATCH (p:Paper {uuid: $paper_uuid})
		MATCH (e:Entity {uuid: $entity_uuid})
		MERGE (p)-[m:MENTIONS]->(e)
		ON CREATE SET m.uuid = $uuid,
			m.created_at = $created_at
		RETURN m.uuid AS uuid
	`

	SaveRelationEdgeQuery = `
		MATCH (s:Entity {uuid: $source_uuid})
		MATCH (t:Entity {uuid: $target_uuid})
		MERGE (s)-[r:RELATES_TO {name: $name}]->(t)
		ON CREATE SET r.uuid = $uuid,
			r.created_at = $created_at
		SET r.fact = $fact,
			r.valid_at = $valid_at,
			r.fact_embedding = CASE WHEN $fact_embedding IS NULL THEN r.fact_embedding ELSE $fact_embedding END
		RETURN r.uuid AS uuid
	`

	LinkConceptQuery = `
		MATCH (n {uuid: $node_uuid})
		MATCH (c:Concept {cui: $cui})
		MERGE (n)-[l:HAS_UMLS_CONCEPT]->(c)
		ON CREATE SET l.uuid = $uuid,
			l.created_at = $created_at
		SET l.similarity = $similarity
		RETURN l.uuid AS uuid
	`

	SaveBroaderEdgeQuery = `
		MATCH (b:Concept {cui: $related_cui})
		MATCH (c:Concept {cui: $cui})
		MERGE (b)-[r:BROADER_THAN]->(c)
		ON CREATE SET r.uuid = $uuid,
			r.created_at = $created_at
		RETURN r.uuid AS uuid
	`

	SaveNarrowerEdgeQuery = `
		MATCH (n:Concept {cui: $related_cui})
		MATCH (c:Concept {cui: $cui})
		MERGE (n)-[r:NARROWER_THAN]->(c)
		ON CREATE SET r.uuid = $uuid,
			r.created_at = $created_at
		RETURN r.uuid AS uuid
	`

	SearchNodesQuery = `
		CALL db.index.fulltext.queryNodes('node_text', $query)
		YIELD node, score
		RETURN node.uuid AS uuid,
			node.name AS name,
			node.summary AS summary,
			labels(node) AS labels,
			node.name_embedding AS embedding,
			score
		ORDER BY score DESC
		LIMIT $limit
	`

	SearchEdgesQuery = `
		CALL db.index.fulltext.queryRelationships('fact_text', $query)
		YIELD relationship, score
		RETURN relationship.uuid AS uuid,
			relationship.fact AS fact,
			relationship.name AS name,
			startNode(relationship).name AS source_name,
			endNode(relationship).name AS target_name,
			relationship.fact_embedding AS embedding,
			score
		ORDER BY score DESC
		LIMIT $limit
	`

	GetNodeByUUIDQuery = `
		MATCH (n {uuid: $uuid})
		RETURN n.uuid AS uuid,
			n.name AS name,
			n.summary AS summary,
			n.content AS content,
			labels(n) AS labels
		LIMIT 1
	`

	ListEnrichableNodesQuery = `
		MATCH (n)
		WHERE NOT n:Concept AND ($label = '' OR $label IN labels(n))
		RETURN n.uuid AS uuid,
			n.name AS name,
			n.summary AS summary,
			n.content AS content,
			labels(n) AS labels
		ORDER BY n.created_at, n.uuid
		LIMIT $limit
	`

	ClearGraphQuery = `
		MATCH (n)
		DETACH DELETE n
	`

	CountNodesQuery = `
		MATCH (n)
		RETURN count(n) AS count
	`

	CountEdgesQuery = `
		MATCH ()-[r]->()
		RETURN count(r) AS count
	`

	NodesByLabelQuery = `
		MATCH (n)
		UNWIND labels(n) AS label
		RETURN label, count(*) AS count
		ORDER BY count DESC, label
	`

	EdgesByTypeQuery = `
		MATCH ()-[r]->()
		RETURN type(r) AS label, count(*) AS count
		ORDER BY count DESC, label
	`

	DegreeStatsQuery = `
		MATCH (n)
		OPTIONAL MATCH (n)-[r]-()
		WITH n, count(r) AS degree
		RETURN avg(degree) AS avg_degree,
			max(degree) AS max_degree,
			sum(CASE WHEN degree = 0 THEN 1 ELSE 0 END) AS isolated
	`

	MostConnectedQuery = `
		MATCH (n)-[r]-()
		WITH n, count(r) AS degree
		ORDER BY degree DESC, n.name
		LIMIT $limit
		RETURN n.name AS name, labels(n) AS labels, degree
	`

	CountConceptsQuery = `
		MATCH (c:Concept)
		RETURN count(c) AS count
	`

	CountEnrichableNodesQuery = `
		MATCH (n)
		WHERE NOT n:Concept
		RETURN count(n) AS count
	`

	CountLinkedNodesQuery = `
		MATCH (n)-[:HAS_UMLS_CONCEPT]->(:Concept)
		WHERE NOT n:Concept
		RETURN count(DISTINCT n) AS count
	`

	TopSemanticTypesQuery = `
		MATCH (c:Concept)
		UNWIND c.semantic_types AS st
		RETURN st AS label, count(*) AS count
		ORDER BY count DESC, label
		LIMIT $limit
	`
)
