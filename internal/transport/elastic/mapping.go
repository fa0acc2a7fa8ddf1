package elastic

// contentMapping is the index settings and mapping for content documents.
// Text fields carry a "raw" keyword sub-field for exact matching and a
// truncated "sortable" keyword for ordering. Taxonomy terms and meta values
// are mapped by dynamic templates since their keys are tenant-defined.
const contentMapping = `{
  "settings": {
    "index": {
      "number_of_shards": 1,
      "number_of_replicas": 1,
      "mapping.total_fields.limit": 5000
    },
    "analysis": {
      "normalizer": {
        "lowerascii": {
          "type": "custom",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "dynamic_templates": [
      {
        "template_terms": {
          "path_match": "terms.*",
          "mapping": {
            "type": "object",
            "properties": {
              "term_id": {"type": "long"},
              "slug": {"type": "keyword"},
              "name": {
                "type": "text",
                "fields": {"raw": {"type": "keyword"}}
              },
              "parent": {"type": "long"},
              "term_taxonomy_id": {"type": "long"},
              "term_order": {"type": "long"}
            }
          }
        }
      },
      {
        "template_meta": {
          "path_match": "meta.*",
          "mapping": {
            "type": "object",
            "properties": {
              "value": {
                "type": "text",
                "fields": {
                  "sortable": {"type": "keyword", "ignore_above": 10922, "normalizer": "lowerascii"}
                }
              },
              "raw": {"type": "keyword", "ignore_above": 10922},
              "long": {"type": "long"},
              "double": {"type": "double"},
              "boolean": {"type": "boolean"},
              "date": {"type": "date", "format": "yyyy-MM-dd"},
              "datetime": {"type": "date", "format": "yyyy-MM-dd HH:mm:ss"},
              "time": {"type": "date", "format": "HH:mm:ss"}
            }
          }
        }
      }
    ],
    "properties": {
      "ID": {"type": "long"},
      "post_type": {
        "type": "text",
        "fields": {"raw": {"type": "keyword"}}
      },
      "post_status": {"type": "keyword"},
      "post_parent": {"type": "long"},
      "post_author": {
        "type": "object",
        "properties": {
          "raw": {"type": "keyword"},
          "login": {
            "type": "text",
            "fields": {"raw": {"type": "keyword"}}
          },
          "display_name": {"type": "text"},
          "id": {"type": "long"}
        }
      },
      "post_title": {
        "type": "text",
        "fields": {
          "sortable": {"type": "keyword", "ignore_above": 10922, "normalizer": "lowerascii"}
        }
      },
      "post_content": {"type": "text"},
      "post_excerpt": {"type": "text"},
      "post_name": {
        "type": "text",
        "fields": {
          "sortable": {"type": "keyword", "ignore_above": 10922, "normalizer": "lowerascii"}
        }
      },
      "post_date": {"type": "date", "format": "yyyy-MM-dd HH:mm:ss"},
      "post_date_gmt": {"type": "date", "format": "yyyy-MM-dd HH:mm:ss"},
      "post_modified": {"type": "date", "format": "yyyy-MM-dd HH:mm:ss"},
      "post_modified_gmt": {"type": "date", "format": "yyyy-MM-dd HH:mm:ss"},
      "post_mime_type": {"type": "keyword"},
      "permalink": {"type": "keyword"},
      "comment_count": {"type": "long"},
      "menu_order": {"type": "long"},
      "date_terms": {
        "type": "object",
        "properties": {
          "year": {"type": "integer"},
          "month": {"type": "integer"},
          "week": {"type": "integer"},
          "dayofyear": {"type": "integer"},
          "day": {"type": "integer"},
          "dayofweek": {"type": "integer"},
          "dayofweek_iso": {"type": "integer"},
          "hour": {"type": "integer"},
          "minute": {"type": "integer"},
          "second": {"type": "integer"},
          "m": {"type": "integer"}
        }
      }
    }
  }
}`
